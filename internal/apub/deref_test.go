package apub

import (
	"context"
	"errors"
	"net/url"
	"testing"
	"time"
)

type scriptedFetcher struct {
	failures int
	calls    int
	doc      Document
}

func (f *scriptedFetcher) GetDocument(ctx context.Context, iri *url.URL) (Document, error) {
	f.calls++
	if f.calls <= f.failures {
		return Document{}, errors.New("connection refused")
	}
	return f.doc, nil
}

func TestResolveEmbeddedNeedsNoFetcher(t *testing.T) {
	fetcher := &scriptedFetcher{}
	d := NewDereferencer(fetcher, time.Second)

	obj := d.Resolve(context.Background(), Embed(Object{ID: "https://a.example/notes/1", Type: "Note"}))
	if obj == nil || obj.ID != "https://a.example/notes/1" {
		t.Fatalf("obj = %+v", obj)
	}
	if fetcher.calls != 0 {
		t.Errorf("embedded resolution performed %d fetches", fetcher.calls)
	}
}

func TestResolveRemoteRetriesTransientFailures(t *testing.T) {
	fetcher := &scriptedFetcher{
		failures: 2,
		doc:      NewDocument(Object{ID: "https://a.example/users/ada", Type: "Person"}),
	}
	d := NewDereferencer(fetcher, 30*time.Second)

	obj := d.Resolve(context.Background(), Remote("https://a.example/users/ada"))
	if obj == nil {
		t.Fatal("resolution failed despite eventual success")
	}
	if obj.ID != "https://a.example/users/ada" {
		t.Errorf("id = %q", obj.ID)
	}
	if fetcher.calls != 3 {
		t.Errorf("calls = %d, want 3", fetcher.calls)
	}
}

func TestResolveGivesUpAtCeiling(t *testing.T) {
	fetcher := &scriptedFetcher{failures: 1 << 30}
	d := NewDereferencer(fetcher, 10*time.Millisecond)

	if obj := d.Resolve(context.Background(), Remote("https://a.example/users/ada")); obj != nil {
		t.Errorf("obj = %+v, want nil after exhaustion", obj)
	}
}

func TestResolveNonFetchableVariants(t *testing.T) {
	fetcher := &scriptedFetcher{}
	d := NewDereferencer(fetcher, time.Second)

	if obj := d.Resolve(context.Background(), nil); obj != nil {
		t.Error("nil reference resolved")
	}
	if obj := d.Resolve(context.Background(), Mixed(*Remote("https://a.example/"))); obj != nil {
		t.Error("mixed reference resolved to a single object")
	}
	if obj := d.Resolve(context.Background(), OpenMap(nil)); obj != nil {
		t.Error("map reference resolved")
	}
	if fetcher.calls != 0 {
		t.Errorf("non-fetchable variants performed %d fetches", fetcher.calls)
	}
}

func TestResolveURI(t *testing.T) {
	d := NewDereferencer(&scriptedFetcher{}, time.Second)

	iri := d.ResolveURI(Remote("https://a.example/users/ada"))
	if iri == nil || iri.Host != "a.example" {
		t.Fatalf("iri = %v", iri)
	}
	if d.ResolveURI(Embed(Object{ID: "https://a.example/"})) != nil {
		t.Error("embedded reference yielded a URI")
	}
	if d.ResolveURI(nil) != nil {
		t.Error("nil reference yielded a URI")
	}
}
