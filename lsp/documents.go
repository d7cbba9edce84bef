package lsp

import (
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// Document is an open text document.
type Document struct {
	URI     string
	Path    string
	Content []byte
}

// Documents holds the documents the client has opened.
type Documents struct {
	mu   sync.RWMutex
	docs map[string]*Document
}

func NewDocuments() *Documents {
	return &Documents{docs: make(map[string]*Document)}
}

// Update stores the content of uri and returns the document.
func (d *Documents) Update(uri string, content []byte) (*Document, error) {
	path, err := uriToPath(uri)
	if err != nil {
		return nil, err
	}
	doc := &Document{URI: uri, Path: path, Content: content}
	d.mu.Lock()
	d.docs[uri] = doc
	d.mu.Unlock()
	return doc, nil
}

// Reload reads the content of uri from disk.
func (d *Documents) Reload(uri string) (*Document, error) {
	path, err := uriToPath(uri)
	if err != nil {
		return nil, err
	}
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return d.Update(uri, content)
}

func (d *Documents) Get(uri string) *Document {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.docs[uri]
}

func (d *Documents) Remove(uri string) {
	d.mu.Lock()
	delete(d.docs, uri)
	d.mu.Unlock()
}

func (d *Documents) Len() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.docs)
}

func uriToPath(uri string) (string, error) {
	if strings.HasPrefix(uri, "file://") {
		parsed, err := url.Parse(uri)
		if err != nil {
			return "", err
		}
		return filepath.Clean(parsed.Path), nil
	}
	return uri, nil
}
