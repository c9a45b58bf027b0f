// Copyright 2025 KrakLabs
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published
// by the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Affero General Public License for more details.
//
// SPDX-License-Identifier: AGPL-3.0-or-later

package lang

import (
	"path/filepath"
	"strings"
	"sync"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/c"
	"github.com/smacker/go-tree-sitter/cpp"
	"github.com/smacker/go-tree-sitter/golang"
	"github.com/smacker/go-tree-sitter/java"
	"github.com/smacker/go-tree-sitter/javascript"
	"github.com/smacker/go-tree-sitter/php"
	"github.com/smacker/go-tree-sitter/python"
	"github.com/smacker/go-tree-sitter/ruby"
	"github.com/smacker/go-tree-sitter/rust"
	"github.com/smacker/go-tree-sitter/typescript/typescript"
)

// Language is a closed enumeration identifying a supported grammar.
type Language int

const (
	Unknown Language = iota
	Go
	C
	CPP
	Java
	PHP
	Python
	Ruby
	TypeScript
	JavaScript
	Rust
)

// All lists every registered Language in a stable order, excluding Unknown.
func All() []Language {
	return []Language{Go, C, CPP, Java, PHP, Python, Ruby, TypeScript, JavaScript, Rust}
}

// String returns the canonical lowercase name used in config, CLI output,
// and the persisted index.
func (l Language) String() string {
	switch l {
	case Go:
		return "go"
	case C:
		return "c"
	case CPP:
		return "cpp"
	case Java:
		return "java"
	case PHP:
		return "php"
	case Python:
		return "python"
	case Ruby:
		return "ruby"
	case TypeScript:
		return "typescript"
	case JavaScript:
		return "javascript"
	case Rust:
		return "rust"
	default:
		return "unknown"
	}
}

// descriptor holds everything a Language needs: its extension set, its
// tree-sitter grammar handle, and whether it has a CFG+taint backend.
type descriptor struct {
	extensions []string
	grammar    func() *sitter.Language
	hasCFG     bool
}

var registry = map[Language]descriptor{
	Go:         {extensions: []string{".go"}, grammar: golang.GetLanguage, hasCFG: true},
	C:          {extensions: []string{".c", ".h"}, grammar: c.GetLanguage, hasCFG: true},
	CPP:        {extensions: []string{".cpp", ".cc", ".cxx", ".hpp", ".hh"}, grammar: cpp.GetLanguage, hasCFG: true},
	Java:       {extensions: []string{".java"}, grammar: java.GetLanguage, hasCFG: true},
	PHP:        {extensions: []string{".php"}, grammar: php.GetLanguage, hasCFG: false},
	Python:     {extensions: []string{".py"}, grammar: python.GetLanguage, hasCFG: true},
	Ruby:       {extensions: []string{".rb"}, grammar: ruby.GetLanguage, hasCFG: false},
	TypeScript: {extensions: []string{".ts", ".tsx"}, grammar: typescript.GetLanguage, hasCFG: true},
	JavaScript: {extensions: []string{".js", ".jsx", ".mjs", ".cjs"}, grammar: javascript.GetLanguage, hasCFG: true},
	Rust:       {extensions: []string{".rs"}, grammar: rust.GetLanguage, hasCFG: true},
}

var extToLang map[string]Language
var extOnce sync.Once

func buildExtensionIndex() {
	extToLang = make(map[string]Language, 24)
	for l, d := range registry {
		for _, ext := range d.extensions {
			extToLang[ext] = l
		}
	}
}

// Extensions returns the file extensions (including the leading dot)
// recognized for this Language.
func (l Language) Extensions() []string {
	return registry[l].extensions
}

// HasCFGBackend reports whether this Language has a registered CFG and
// taint catalog, i.e. whether mode=cfg/full can run for it.
func (l Language) HasCFGBackend() bool {
	return registry[l].hasCFG
}

// Grammar returns the tree-sitter grammar handle for this Language, or nil
// for Unknown.
func (l Language) Grammar() *sitter.Language {
	d, ok := registry[l]
	if !ok || d.grammar == nil {
		return nil
	}
	return d.grammar()
}

// FromExtension classifies a file path by its extension. Matching is
// case-insensitive; an unrecognized extension returns Unknown.
func FromExtension(path string) Language {
	extOnce.Do(buildExtensionIndex)
	ext := strings.ToLower(filepath.Ext(path))
	if l, ok := extToLang[ext]; ok {
		return l
	}
	return Unknown
}
