package memory

import (
	"context"
	"errors"
	"testing"

	"github.com/aretw0/quire/pkg/core"
)

func TestStorage(t *testing.T) {
	ctx := context.Background()

	t.Run("Missing Key", func(t *testing.T) {
		s := New()
		if _, err := s.Get(ctx, "notes"); !errors.Is(err, core.ErrKeyNotFound) {
			t.Fatalf("expected ErrKeyNotFound, got %v", err)
		}
	})

	t.Run("Set Get Remove", func(t *testing.T) {
		s := New()
		if err := s.Set(ctx, "notes", []byte("[]")); err != nil {
			t.Fatalf("Set failed: %v", err)
		}
		got, err := s.Get(ctx, "notes")
		if err != nil {
			t.Fatalf("Get failed: %v", err)
		}
		if string(got) != "[]" {
			t.Errorf("expected '[]', got '%s'", got)
		}

		if err := s.Remove(ctx, "notes"); err != nil {
			t.Fatalf("Remove failed: %v", err)
		}
		if err := s.Remove(ctx, "notes"); err != nil {
			t.Fatalf("second Remove should be a no-op, got %v", err)
		}
		if len(s.Keys()) != 0 {
			t.Errorf("expected no keys, got %v", s.Keys())
		}
	})

	t.Run("Returned Bytes Are Copies", func(t *testing.T) {
		s := New()
		buf := []byte("abc")
		_ = s.Set(ctx, "k", buf)
		buf[0] = 'x'

		got, _ := s.Get(ctx, "k")
		got[1] = 'y'

		again, _ := s.Get(ctx, "k")
		if string(again) != "abc" {
			t.Errorf("stored value was aliased: %s", again)
		}
	})

	t.Run("Injected Failures", func(t *testing.T) {
		s := New()
		boom := errors.New("boom")

		s.FailWrites(boom)
		if err := s.Set(ctx, "k", nil); !errors.Is(err, boom) {
			t.Errorf("expected injected write error, got %v", err)
		}
		s.FailWrites(nil)

		s.FailReads(boom)
		if _, err := s.Get(ctx, "k"); !errors.Is(err, boom) {
			t.Errorf("expected injected read error, got %v", err)
		}
	})

	t.Run("Read Only", func(t *testing.T) {
		s := NewReadOnly(map[string][]byte{"notes": []byte("[]")})
		if err := s.Set(ctx, "notes", nil); !errors.Is(err, core.ErrReadOnly) {
			t.Errorf("expected ErrReadOnly, got %v", err)
		}
		if _, err := s.Get(ctx, "notes"); err != nil {
			t.Errorf("reads should work, got %v", err)
		}
	})
}
