// Package compiler implements the Compiler / Dry-Run Loop (spec §4.4): it
// resolves a module's compiled bytecode (the "casm class"), drives the
// external dry VM to discover which fetch keys a module task needs, and
// merges those with the keys statically derivable from datalake tasks.
package compiler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"sync"

	"github.com/holiman/uint256"
)

// Class registry errors.
var (
	ErrClassExists   = errors.New("compiler: casm class already cached")
	ErrClassNotFound = errors.New("compiler: casm class not found")
)

// ClassRegistry resolves a module's compiled CASM bytecode, either from an
// in-memory cache (populated by a prior registry fetch or a local-file
// load) or from the module registry RPC named by MODULE_REGISTRY_RPC_URL
// (spec §6). Grounded on the mutex-guarded named-entry cache idiom kept
// from the teacher's subsystem registries.
type ClassRegistry struct {
	mu         sync.RWMutex
	classes    map[string][]byte // keyed by program hash (0x-prefixed hex)
	registryURL string
	httpClient *http.Client
}

// NewClassRegistry builds a ClassRegistry backed by registryURL (empty
// disables remote fetches; local-file loads still work).
func NewClassRegistry(registryURL string) *ClassRegistry {
	return &ClassRegistry{
		classes:     make(map[string][]byte),
		registryURL: registryURL,
		httpClient:  &http.Client{},
	}
}

// Put caches a casm class under the given program hash key, overwriting
// any prior cache entry. Used after a successful registry fetch or local
// load so repeated resolutions for the same program hash are free.
func (r *ClassRegistry) Put(programHashKey string, class []byte) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.classes[programHashKey] = class
}

// Get returns a cached class, or ErrClassNotFound if absent.
func (r *ClassRegistry) Get(programHashKey string) ([]byte, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	class, ok := r.classes[programHashKey]
	if !ok {
		return nil, ErrClassNotFound
	}
	return class, nil
}

// LoadLocalClass reads a casm-class file from disk (spec §4.4 step 1,
// "...or load from local_class_path"). Restored from original_source's
// cli/src/module_config.rs local-class-path loading, not present in the
// distilled spec's Compiler section.
func LoadLocalClass(path string) ([]byte, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("compiler: load local class %s: %w", path, err)
	}
	return b, nil
}

type registryClassResponse struct {
	CasmClass string `json:"casm_class"` // 0x-prefixed hex
}

// FetchFromRegistry retrieves a casm class by program hash from the module
// registry RPC (spec §4.4 step 1, "fetch from registry by program hash").
func (r *ClassRegistry) FetchFromRegistry(ctx context.Context, programHash *uint256.Int) ([]byte, error) {
	key := programHashKey(programHash)
	if cached, err := r.Get(key); err == nil {
		return cached, nil
	}
	if r.registryURL == "" {
		return nil, fmt.Errorf("%w: no registry url configured for %s", ErrClassNotFound, key)
	}

	url := r.registryURL + "/class/" + key
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("compiler: build registry request: %w", err)
	}
	resp, err := r.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("compiler: registry fetch %s: %w", key, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, fmt.Errorf("%w: %s", ErrClassNotFound, key)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("compiler: read registry response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("compiler: registry fetch %s: status %d: %s", key, resp.StatusCode, string(body))
	}

	var parsed registryClassResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("compiler: decode registry response for %s: %w", key, err)
	}
	class, err := decodeHex(parsed.CasmClass)
	if err != nil {
		return nil, fmt.Errorf("compiler: decode casm class for %s: %w", key, err)
	}
	r.Put(key, class)
	return class, nil
}

// Resolve resolves a module's casm class: a local class path (if set)
// takes precedence over the registry, matching spec §4.4 step 1's ordering
// ("fetch from registry by program hash, or load from local_class_path").
func (r *ClassRegistry) Resolve(ctx context.Context, programHash *uint256.Int, localClassPath string) ([]byte, error) {
	if localClassPath != "" {
		return LoadLocalClass(localClassPath)
	}
	return r.FetchFromRegistry(ctx, programHash)
}

func programHashKey(v *uint256.Int) string {
	if v == nil {
		v = new(uint256.Int)
	}
	word := v.Bytes32()
	return fmt.Sprintf("0x%x", word[:])
}

func decodeHex(s string) ([]byte, error) {
	if len(s) >= 2 && s[0] == '0' && (s[1] == 'x' || s[1] == 'X') {
		s = s[2:]
	}
	if len(s)%2 != 0 {
		s = "0" + s
	}
	out := make([]byte, len(s)/2)
	for i := 0; i < len(out); i++ {
		hi, err := hexDigit(s[i*2])
		if err != nil {
			return nil, err
		}
		lo, err := hexDigit(s[i*2+1])
		if err != nil {
			return nil, err
		}
		out[i] = hi<<4 | lo
	}
	return out, nil
}

func hexDigit(c byte) (byte, error) {
	switch {
	case c >= '0' && c <= '9':
		return c - '0', nil
	case c >= 'a' && c <= 'f':
		return c - 'a' + 10, nil
	case c >= 'A' && c <= 'F':
		return c - 'A' + 10, nil
	default:
		return 0, fmt.Errorf("compiler: invalid hex digit %q", c)
	}
}
