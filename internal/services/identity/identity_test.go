package identity

import (
	"bytes"
	"encoding/base64"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/vshulcz/formmetrics/internal/domain"
)

type memPrefs struct {
	getErr error
	setErr error
	values map[string]string
	gets   int
	sets   int
}

func (m *memPrefs) GetString(key string) (string, error) {
	m.gets++
	if m.getErr != nil {
		return "", m.getErr
	}
	v, ok := m.values[key]
	if !ok {
		return "", domain.ErrPrefNotFound
	}
	return v, nil
}

func (m *memPrefs) SetString(key, value string) error {
	m.sets++
	if m.setErr != nil {
		return m.setErr
	}
	if m.values == nil {
		m.values = map[string]string{}
	}
	m.values[key] = value
	return nil
}

func TestGet_ExistingPreference(t *testing.T) {
	prefs := &memPrefs{values: map[string]string{DefaultPrefKey: "stored-id"}}
	id := New(prefs, nil, "", nil)

	for range 3 {
		got, ok := id.Get()
		if !ok || got != "stored-id" {
			t.Fatalf("Get=%q,%v", got, ok)
		}
	}
	if prefs.gets != 1 || prefs.sets != 0 {
		t.Fatalf("gets=%d sets=%d want 1/0", prefs.gets, prefs.sets)
	}
}

func TestGet_GeneratesAndPersists(t *testing.T) {
	prefs := &memPrefs{}
	rnd := bytes.NewReader(bytes.Repeat([]byte{0xAB}, TokenBytes))
	id := New(prefs, rnd, "custom.key", nil)

	got, ok := id.Get()
	if !ok {
		t.Fatal("Get failed")
	}
	want := base64.StdEncoding.EncodeToString(bytes.Repeat([]byte{0xAB}, TokenBytes))
	if got != want {
		t.Fatalf("id=%q want %q", got, want)
	}
	if prefs.values["custom.key"] != want {
		t.Fatalf("persisted=%q", prefs.values["custom.key"])
	}
	again, _ := id.Get()
	if again != got || prefs.sets != 1 || prefs.gets != 1 {
		t.Fatalf("second Get=%q gets=%d sets=%d", again, prefs.gets, prefs.sets)
	}
}

func TestGet_EmptyPreferenceIsRegenerated(t *testing.T) {
	prefs := &memPrefs{values: map[string]string{DefaultPrefKey: ""}}
	got, ok := New(prefs, nil, "", nil).Get()
	if !ok || got == "" {
		t.Fatalf("Get=%q,%v", got, ok)
	}
	raw, err := base64.StdEncoding.DecodeString(got)
	if err != nil || len(raw) != TokenBytes {
		t.Fatalf("token %q decodes to %d bytes (%v)", got, len(raw), err)
	}
}

func TestGet_FailureIsSticky(t *testing.T) {
	tests := []struct {
		prefs *memPrefs
		rnd   io.Reader
		name  string
	}{
		{name: "read error", prefs: &memPrefs{getErr: errors.New("corrupt prefs")}},
		{name: "random source exhausted", prefs: &memPrefs{}, rnd: strings.NewReader("short")},
		{name: "write error", prefs: &memPrefs{setErr: errors.New("read-only profile")}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			core, logs := observer.New(zapcore.ErrorLevel)
			id := New(tt.prefs, tt.rnd, "", zap.New(core))

			for range 3 {
				if got, ok := id.Get(); ok || got != "" {
					t.Fatalf("Get=%q,%v want failure", got, ok)
				}
			}
			if tt.prefs.gets != 1 {
				t.Fatalf("gets=%d, failure was retried", tt.prefs.gets)
			}
			if tt.prefs.sets > 1 {
				t.Fatalf("sets=%d, failure was retried", tt.prefs.sets)
			}
			if logs.FilterMessage("client identity unavailable").Len() != 1 {
				t.Fatalf("logs=%v", logs.All())
			}
		})
	}
}

func TestGet_NilStore(t *testing.T) {
	if _, ok := New(nil, nil, "", nil).Get(); ok {
		t.Fatal("Get succeeded without a preference store")
	}
}

func TestGet_Concurrent(t *testing.T) {
	prefs := &memPrefs{}
	id := New(prefs, nil, "", nil)

	var wg sync.WaitGroup
	results := make([]string, 16)
	for i := range results {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[i], _ = id.Get()
		}()
	}
	wg.Wait()

	for _, r := range results {
		if r != results[0] {
			t.Fatalf("ids differ: %q vs %q", r, results[0])
		}
	}
	if prefs.sets != 1 {
		t.Fatalf("sets=%d want 1", prefs.sets)
	}
}
