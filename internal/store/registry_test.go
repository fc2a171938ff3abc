// ABOUTME: Tests for the authorized-application registry rows
// ABOUTME: Covers idempotent grants, revocation by kind, and listing

package store

import (
	"context"
	"errors"
	"testing"
)

func TestAuthorizeAndCheck(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	app := AuthorizedApp{
		PackageName: "com.example.manager",
		Kind:        KindKey,
		Fingerprint: "SHA256:abcdef",
	}
	if err := s.AuthorizeApp(ctx, app); err != nil {
		t.Fatalf("authorizing: %v", err)
	}
	// idempotent
	if err := s.AuthorizeApp(ctx, app); err != nil {
		t.Fatalf("re-authorizing: %v", err)
	}

	ok, err := s.IsAppAuthorized(ctx, "com.example.manager", KindKey, "SHA256:abcdef")
	if err != nil || !ok {
		t.Errorf("expected authorized (err %v)", err)
	}
	ok, _ = s.IsAppAuthorized(ctx, "com.example.manager", KindSignature, "SHA256:abcdef")
	if ok {
		t.Error("wrong kind matched")
	}
	ok, _ = s.IsAppAuthorized(ctx, "com.example.other", KindKey, "SHA256:abcdef")
	if ok {
		t.Error("wrong package matched")
	}
}

func TestDeauthorizeByKind(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	for _, app := range []AuthorizedApp{
		{PackageName: "com.m", Kind: KindKey, Fingerprint: "SHA256:k1"},
		{PackageName: "com.m", Kind: KindKey, Fingerprint: "SHA256:k2"},
		{PackageName: "com.m", Kind: KindSignature, Fingerprint: "sigdigest"},
	} {
		if err := s.AuthorizeApp(ctx, app); err != nil {
			t.Fatalf("authorizing: %v", err)
		}
	}

	if err := s.DeauthorizeApp(ctx, "com.m", KindKey); err != nil {
		t.Fatalf("deauthorizing: %v", err)
	}
	for _, fp := range []string{"SHA256:k1", "SHA256:k2"} {
		if ok, _ := s.IsAppAuthorized(ctx, "com.m", KindKey, fp); ok {
			t.Errorf("key %s survived deauthorize", fp)
		}
	}
	if ok, _ := s.IsAppAuthorized(ctx, "com.m", KindSignature, "sigdigest"); !ok {
		t.Error("other kind was removed too")
	}
}

func TestAuthorizeRejectsMalformed(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	cases := []AuthorizedApp{
		{Kind: KindKey, Fingerprint: "x"},
		{PackageName: "com.m", Kind: KindKey},
		{PackageName: "com.m", Kind: "passport", Fingerprint: "x"},
	}
	for i, app := range cases {
		if err := s.AuthorizeApp(ctx, app); !errors.Is(err, ErrMalformedInput) {
			t.Errorf("case %d: got %v", i, err)
		}
	}
}

func TestListAuthorizedApps(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if err := s.AuthorizeApp(ctx, AuthorizedApp{
		PackageName: "com.one", Kind: KindKey, Fingerprint: "SHA256:a",
	}); err != nil {
		t.Fatal(err)
	}
	if err := s.AuthorizeApp(ctx, AuthorizedApp{
		PackageName: "com.two", Kind: KindSignature, Fingerprint: "d",
	}); err != nil {
		t.Fatal(err)
	}

	apps, err := s.ListAuthorizedApps(ctx)
	if err != nil {
		t.Fatalf("listing: %v", err)
	}
	if len(apps) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(apps))
	}
	for _, app := range apps {
		if app.CreatedAt.IsZero() {
			t.Error("created_at not populated")
		}
	}
}
