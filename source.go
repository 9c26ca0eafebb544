package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/atotto/clipboard"
	"github.com/mitchellh/go-homedir"

	"github.com/dgnsrekt/narrate/tts/sentence"
)

var markdownExtensions = []string{".md", ".markdown", ".mdown", ".mkdn", ".mkd"}

// errNoText is returned when a source yields nothing speakable.
var errNoText = errors.New("nothing to say")

// source is where the text to speak comes from.
type source struct {
	reader io.ReadCloser
	path   string
}

// sourceOptions selects a source in order: clipboard, file, stdin ("-" or
// a pipe), and finally the arguments themselves.
type sourceOptions struct {
	clipboard bool
	file      string
	stdinPipe bool
}

// openSource returns the source for args. When the text is given on the
// command line it is returned as text with a nil source.
func openSource(args []string, opts sourceOptions) (*source, string, error) {
	switch {
	case opts.clipboard:
		text, err := clipboard.ReadAll()
		if err != nil {
			return nil, "", fmt.Errorf("unable to read clipboard: %w", err)
		}
		return nil, text, nil

	case opts.file != "":
		return openFile(opts.file)

	case len(args) == 1 && args[0] == "-", len(args) == 0 && opts.stdinPipe:
		return &source{reader: os.Stdin}, "", nil

	case len(args) == 0:
		return nil, "", errNoText
	}

	return nil, strings.Join(args, " "), nil
}

func openFile(path string) (*source, string, error) {
	path = expandPath(path)
	f, err := os.Open(path)
	if err != nil {
		return nil, "", fmt.Errorf("unable to open file: %w", err)
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		_ = f.Close()
		return nil, "", fmt.Errorf("unable to get absolute path: %w", err)
	}
	return &source{reader: f, path: abs}, "", nil
}

// readText resolves args into the text to speak. Markdown, either forced
// or detected from a file extension, is reduced to its readable text.
func readText(args []string, opts sourceOptions, markdown bool) (string, error) {
	src, text, err := openSource(args, opts)
	if err != nil {
		return "", err
	}

	if src != nil {
		defer src.reader.Close() //nolint:errcheck
		b, err := io.ReadAll(src.reader)
		if err != nil {
			return "", fmt.Errorf("unable to read from reader: %w", err)
		}
		text = string(b)
		markdown = markdown || isMarkdownFile(src.path)
	}

	if markdown {
		text = sentence.PlainText(removeFrontmatter(text))
	}
	if strings.TrimSpace(text) == "" {
		return "", errNoText
	}
	return text, nil
}

func isMarkdownFile(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, v := range markdownExtensions {
		if ext == v {
			return true
		}
	}
	return false
}

// removeFrontmatter drops a leading YAML front matter block.
func removeFrontmatter(text string) string {
	if !strings.HasPrefix(text, "---\n") {
		return text
	}
	end := strings.Index(text[4:], "\n---")
	if end < 0 {
		return text
	}
	rest := text[4+end+4:]
	return strings.TrimPrefix(rest, "\n")
}

// expandPath expands environment variables and a leading ~.
func expandPath(path string) string {
	home, err := homedir.Expand(path)
	if err != nil {
		return path
	}
	return os.ExpandEnv(home)
}

func stdinIsPipe() (bool, error) {
	stat, err := os.Stdin.Stat()
	if err != nil {
		return false, fmt.Errorf("unable to open file: %w", err)
	}
	if stat.Mode()&os.ModeCharDevice == 0 || stat.Size() > 0 {
		return true, nil
	}
	return false, nil
}
