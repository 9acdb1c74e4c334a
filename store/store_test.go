package store

import (
	"bytes"
	"context"
	"errors"
	"os"
	"strings"
	"testing"

	"github.com/chazu/stasis/bytecode"
	"github.com/chazu/stasis/checkpoint"
	"github.com/chazu/stasis/host"
	"github.com/chazu/stasis/object"
)

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

// makeCheckpoint dumps a module holding n distinct but equal strings, so
// that larger n gives a highly compressible blob.
func makeCheckpoint(t *testing.T, sourcePath string, lasti uint64, n int) []byte {
	t.Helper()
	rt := host.New()
	e := checkpoint.New(rt, bytecode.Codec{})

	items := make([]object.Object, n)
	for i := range items {
		items[i] = object.NewStr("a fairly repetitive checkpoint value")
	}
	mod := object.NewModule("__main__")
	mod.Dict.SetStr("items", object.NewList(items...))

	code := &object.Code{Filename: sourcePath, Name: "<module>", FirstLine: 1, Instructions: []byte{1, 2, 3}}
	data, err := e.Dump(mod, code, lasti, sourcePath)
	if err != nil {
		t.Fatalf("Dump failed: %v", err)
	}
	return data
}

func openStore(t *testing.T, c Compression) *Store {
	t.Helper()
	s, err := Open(t.TempDir(), Options{Compression: c})
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// ---------------------------------------------------------------------------
// Put / Get
// ---------------------------------------------------------------------------

func TestPutGetRoundTrip(t *testing.T) {
	for _, c := range []Compression{CompressionNone, CompressionLZ4, CompressionZstd} {
		t.Run(c.String(), func(t *testing.T) {
			ctx := context.Background()
			s := openStore(t, c)
			blob := makeCheckpoint(t, "main.src", 4, 500)

			rec, err := s.Put(ctx, blob)
			if err != nil {
				t.Fatalf("Put failed: %v", err)
			}
			if rec.Compression != c {
				t.Errorf("Compression = %s, want %s", rec.Compression, c)
			}
			if rec.Digest != DigestOf(blob) {
				t.Error("record digest does not match content")
			}
			if rec.SourcePath != "main.src" || rec.Lasti != 4 {
				t.Errorf("record header = (%q, %d), want (main.src, 4)", rec.SourcePath, rec.Lasti)
			}
			if rec.Size != len(blob) {
				t.Errorf("Size = %d, want %d", rec.Size, len(blob))
			}
			if c != CompressionNone && rec.Stored >= rec.Size {
				t.Errorf("Stored = %d, expected less than Size %d", rec.Stored, rec.Size)
			}

			got, err := s.Get(ctx, rec.Digest)
			if err != nil {
				t.Fatalf("Get failed: %v", err)
			}
			if !bytes.Equal(got, blob) {
				t.Error("Get returned different bytes")
			}
		})
	}
}

func TestPutIsIdempotent(t *testing.T) {
	ctx := context.Background()
	s := openStore(t, CompressionZstd)
	blob := makeCheckpoint(t, "main.src", 1, 10)

	first, err := s.Put(ctx, blob)
	if err != nil {
		t.Fatalf("first Put failed: %v", err)
	}
	second, err := s.Put(ctx, blob)
	if err != nil {
		t.Fatalf("second Put failed: %v", err)
	}
	if !first.Created.Equal(second.Created) {
		t.Error("second Put must return the existing record")
	}
	recs, err := s.List(ctx, "")
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(recs) != 1 {
		t.Errorf("List returned %d records, want 1", len(recs))
	}
}

func TestPutRejectsNonCheckpoint(t *testing.T) {
	s := openStore(t, CompressionZstd)
	if _, err := s.Put(context.Background(), []byte("not a checkpoint")); err == nil {
		t.Fatal("expected error for non-checkpoint input")
	}
	entries, err := os.ReadDir(s.Dir() + "/blobs")
	if err != nil {
		t.Fatalf("ReadDir failed: %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("rejected input left %d files behind", len(entries))
	}
}

func TestGetMissing(t *testing.T) {
	s := openStore(t, CompressionZstd)
	_, err := s.Get(context.Background(), DigestOf([]byte("nothing")))
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
	_, err = s.Stat(context.Background(), DigestOf([]byte("nothing")))
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("Stat err = %v, want ErrNotFound", err)
	}
}

func TestGetDetectsCorruption(t *testing.T) {
	ctx := context.Background()
	s := openStore(t, CompressionNone)
	blob := makeCheckpoint(t, "main.src", 1, 3)
	rec, err := s.Put(ctx, blob)
	if err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	path := s.blobPath(rec.Digest)
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile failed: %v", err)
	}

	t.Run("flipped payload byte", func(t *testing.T) {
		damaged := bytes.Clone(data)
		damaged[len(damaged)-1] ^= 0xff
		if err := os.WriteFile(path, damaged, 0o644); err != nil {
			t.Fatal(err)
		}
		if _, err := s.Get(ctx, rec.Digest); !errors.Is(err, ErrCorrupt) {
			t.Errorf("err = %v, want ErrCorrupt", err)
		}
	})

	t.Run("bad magic", func(t *testing.T) {
		if err := os.WriteFile(path, []byte("XXXX"), 0o644); err != nil {
			t.Fatal(err)
		}
		if _, err := s.Get(ctx, rec.Digest); !errors.Is(err, ErrCorrupt) {
			t.Errorf("err = %v, want ErrCorrupt", err)
		}
	})
}

// ---------------------------------------------------------------------------
// Catalog
// ---------------------------------------------------------------------------

func TestListAndLatest(t *testing.T) {
	ctx := context.Background()
	s := openStore(t, CompressionLZ4)

	var last Record
	for i := uint64(1); i <= 3; i++ {
		rec, err := s.Put(ctx, makeCheckpoint(t, "a.src", i, 5))
		if err != nil {
			t.Fatalf("Put %d failed: %v", i, err)
		}
		last = rec
	}
	if _, err := s.Put(ctx, makeCheckpoint(t, "b.src", 9, 5)); err != nil {
		t.Fatalf("Put b failed: %v", err)
	}

	recs, err := s.List(ctx, "a.src")
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(recs) != 3 {
		t.Fatalf("List returned %d records, want 3", len(recs))
	}
	if recs[0].Lasti != 3 || recs[2].Lasti != 1 {
		t.Errorf("List order = %d..%d, want newest first", recs[0].Lasti, recs[2].Lasti)
	}

	all, err := s.List(ctx, "")
	if err != nil {
		t.Fatalf("List all failed: %v", err)
	}
	if len(all) != 4 {
		t.Errorf("List all returned %d records, want 4", len(all))
	}

	latest, err := s.Latest(ctx, "a.src")
	if err != nil {
		t.Fatalf("Latest failed: %v", err)
	}
	if latest.Digest != last.Digest {
		t.Errorf("Latest = %s, want %s", latest.Digest.Short(), last.Digest.Short())
	}

	if _, err := s.Latest(ctx, "missing.src"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Latest for unknown source err = %v, want ErrNotFound", err)
	}
}

func TestCatalogSurvivesReopen(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	s, err := Open(dir, Options{Compression: CompressionZstd})
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	rec, err := s.Put(ctx, makeCheckpoint(t, "main.src", 2, 20))
	if err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	s.Close()

	s, err = Open(dir, Options{})
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	defer s.Close()
	got, err := s.Stat(ctx, rec.Digest)
	if err != nil {
		t.Fatalf("Stat after reopen failed: %v", err)
	}
	if got.Lasti != 2 || got.Compression != CompressionZstd {
		t.Errorf("record after reopen = %+v", got)
	}
}

// ---------------------------------------------------------------------------
// Digest, compression, frame
// ---------------------------------------------------------------------------

func TestParseDigest(t *testing.T) {
	d := DigestOf([]byte("hello"))
	got, err := ParseDigest(d.String())
	if err != nil {
		t.Fatalf("ParseDigest failed: %v", err)
	}
	if got != d {
		t.Error("ParseDigest did not invert String")
	}
	if len(d.Short()) != 12 || !strings.HasPrefix(d.String(), d.Short()) {
		t.Errorf("Short = %q", d.Short())
	}

	for _, bad := range []string{"", "abc", strings.Repeat("zz", 32)} {
		if _, err := ParseDigest(bad); err == nil {
			t.Errorf("ParseDigest(%q) succeeded", bad)
		}
	}
}

func TestDigestIsKeyed(t *testing.T) {
	if DigestOf([]byte("a")) == DigestOf([]byte("b")) {
		t.Error("distinct inputs share a digest")
	}
	if DigestOf(nil) == (Digest{}) {
		t.Error("empty input digest must not be zero")
	}
}

func TestParseCompression(t *testing.T) {
	tests := []struct {
		name string
		want Compression
	}{
		{"", CompressionZstd},
		{"zstd", CompressionZstd},
		{"lz4", CompressionLZ4},
		{"none", CompressionNone},
	}
	for _, tt := range tests {
		got, err := ParseCompression(tt.name)
		if err != nil {
			t.Errorf("ParseCompression(%q) failed: %v", tt.name, err)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseCompression(%q) = %s, want %s", tt.name, got, tt.want)
		}
	}
	if _, err := ParseCompression("gzip"); err == nil {
		t.Error("ParseCompression(gzip) succeeded")
	}
}

func TestIncompressibleFallsBackToNone(t *testing.T) {
	data := []byte{0x01}
	out, c, err := compress(data, CompressionZstd)
	if err != nil {
		t.Fatalf("compress failed: %v", err)
	}
	if c != CompressionNone || !bytes.Equal(out, data) {
		t.Errorf("compress of 1 byte = (%x, %s), want raw bytes with none", out, c)
	}
}

func TestDecodeFrameErrors(t *testing.T) {
	good := encodeFrame(CompressionNone, 3, []byte("abc"))
	c, size, payload, err := decodeFrame(good)
	if err != nil {
		t.Fatalf("decodeFrame failed: %v", err)
	}
	if c != CompressionNone || size != 3 || string(payload) != "abc" {
		t.Errorf("decodeFrame = (%s, %d, %q)", c, size, payload)
	}

	tests := map[string][]byte{
		"empty":     nil,
		"bad magic": []byte("NOPE\x00\x03abc"),
		"no header": []byte("STSF"),
		"no length": []byte("STSF\x00"),
		"too large": append([]byte("STSF\x00"), 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0x01),
	}
	for name, data := range tests {
		t.Run(name, func(t *testing.T) {
			if _, _, _, err := decodeFrame(data); !errors.Is(err, ErrCorrupt) {
				t.Errorf("err = %v, want ErrCorrupt", err)
			}
		})
	}
}
