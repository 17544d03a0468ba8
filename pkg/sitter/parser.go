// Package sitter adapts tree-sitter grammars to the normalizer's syntax node
// capability.
package sitter

import (
	"context"
	"errors"
	"fmt"
	"sync"

	sitter "github.com/alexaandru/go-tree-sitter-bare"
)

// Sentinel errors for parser operations.
var (
	ErrUnknownLanguage = errors.New("unknown language")
	ErrNoRootNode      = errors.New("parser returned no root node")
	errPoolType        = errors.New("unexpected parser pool entry")
)

// Parser parses source buffers with the bundled grammars. It keeps one pool
// of tree-sitter parsers per language and is safe for concurrent use.
type Parser struct {
	pools sync.Map // language -> *sync.Pool
}

// NewParser returns a Parser with empty pools.
func NewParser() *Parser {
	return &Parser{}
}

// Parse parses source with the grammar of lang. Node text aliases source,
// which must not be modified while the tree is in use.
func (p *Parser) Parse(ctx context.Context, lang string, source []byte) (*Tree, error) {
	pool, err := p.pool(lang)
	if err != nil {
		return nil, err
	}

	tsParser, ok := pool.Get().(*sitter.Parser)
	if !ok {
		return nil, errPoolType
	}

	defer pool.Put(tsParser)

	tsTree, err := tsParser.ParseString(ctx, nil, source)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", lang, err)
	}
	defer tsTree.Close()

	root := tsTree.RootNode()
	if root.IsNull() {
		return nil, fmt.Errorf("%w: %s", ErrNoRootNode, lang)
	}

	conv := newConverter(source)

	return &Tree{Language: lang, root: conv.convert(root, nil)}, nil
}

func (p *Parser) pool(lang string) (*sync.Pool, error) {
	if cached, ok := p.pools.Load(lang); ok {
		pool, castOK := cached.(*sync.Pool)
		if castOK {
			return pool, nil
		}
	}

	tsLang := GetLanguage(lang)
	if tsLang == nil {
		return nil, fmt.Errorf("%w: %q", ErrUnknownLanguage, lang)
	}

	pool := &sync.Pool{
		New: func() any {
			tsParser := sitter.NewParser()
			tsParser.SetLanguage(tsLang)

			return tsParser
		},
	}

	actual, _ := p.pools.LoadOrStore(lang, pool)

	stored, ok := actual.(*sync.Pool)
	if !ok {
		return nil, errPoolType
	}

	return stored, nil
}
