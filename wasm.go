package wasm3

import (
	"fmt"
	"os"

	"github.com/birdhello/wasm3/wasm"
)

// Decode decodes data against env. A nil env uses a fresh default one.
func Decode(env *wasm.Environment, data []byte) (*wasm.Module, error) {
	return wasm.ParseModule(env, data)
}

// DecodeFile reads and decodes the module at path with a default
// environment.
func DecodeFile(path string) (*wasm.Module, error) {
	return DecodeFileWithEnv(nil, path)
}

// DecodeFileWithEnv reads and decodes the module at path against env.
func DecodeFileWithEnv(env *wasm.Environment, path string) (*wasm.Module, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	m, err := wasm.ParseModule(env, data)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	return m, nil
}
