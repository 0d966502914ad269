// Package identity provides the persistent, randomly generated client id.
package identity

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"sync"

	"go.uber.org/zap"

	"github.com/vshulcz/formmetrics/internal/domain"
	"github.com/vshulcz/formmetrics/internal/ports"
)

// TokenBytes is the amount of randomness in a client id.
const TokenBytes = 32

// DefaultPrefKey is the preference holding the client id.
const DefaultPrefKey = "extensions.formmetrics.id"

type state int

const (
	stateUnknown state = iota
	stateReady
	stateFailed
)

// Identity resolves the client id at most once per process. A failure is
// remembered and never retried.
type Identity struct {
	prefs ports.PrefStore
	rnd   io.Reader
	log   *zap.Logger
	key   string
	id    string
	mu    sync.Mutex
	state state
}

// New returns an Identity backed by prefs. A nil rnd uses crypto/rand and an
// empty key uses DefaultPrefKey.
func New(prefs ports.PrefStore, rnd io.Reader, key string, log *zap.Logger) *Identity {
	if rnd == nil {
		rnd = rand.Reader
	}
	if key == "" {
		key = DefaultPrefKey
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Identity{prefs: prefs, rnd: rnd, key: key, log: log}
}

// Get returns the client id, or false once identity has failed.
func (i *Identity) Get() (string, bool) {
	i.mu.Lock()
	defer i.mu.Unlock()

	switch i.state {
	case stateReady:
		return i.id, true
	case stateFailed:
		return "", false
	}

	id, err := i.resolve()
	if err != nil {
		i.state = stateFailed
		i.log.Error("client identity unavailable", zap.String("pref", i.key), zap.Error(err))
		return "", false
	}
	i.id, i.state = id, stateReady
	return id, true
}

func (i *Identity) resolve() (string, error) {
	if i.prefs == nil {
		return "", fmt.Errorf("%w: no preference store", domain.ErrIdentityUnavailable)
	}

	id, err := i.prefs.GetString(i.key)
	switch {
	case err == nil && id != "":
		return id, nil
	case err != nil && !errors.Is(err, domain.ErrPrefNotFound):
		return "", fmt.Errorf("%w: read %s: %v", domain.ErrIdentityUnavailable, i.key, err)
	}

	id, err = NewToken(i.rnd)
	if err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrIdentityUnavailable, err)
	}
	if err := i.prefs.SetString(i.key, id); err != nil {
		return "", fmt.Errorf("%w: persist %s: %v", domain.ErrIdentityUnavailable, i.key, err)
	}
	i.log.Info("client identity created", zap.String("pref", i.key))
	return id, nil
}

// NewToken reads TokenBytes from rnd and encodes them as standard base64.
func NewToken(rnd io.Reader) (string, error) {
	buf := make([]byte, TokenBytes)
	if _, err := io.ReadFull(rnd, buf); err != nil {
		return "", fmt.Errorf("generate token: %w", err)
	}
	return base64.StdEncoding.EncodeToString(buf), nil
}
