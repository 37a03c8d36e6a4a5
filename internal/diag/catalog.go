package diag

import (
	"bytes"
	_ "embed"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"

	"github.com/pelletier/go-toml/v2"
	"golang.org/x/exp/slices"
)

// MessageID identifies a message in a Catalog.
type MessageID string

const (
	MsgParseStarting       MessageID = "parse.starting"
	MsgParseCheckingItem   MessageID = "parse.checking_manifest_item"
	MsgParseFinishing      MessageID = "parse.finishing"
	MsgRequiredFileMissing MessageID = "error.required_file_missing"
	MsgRequireNode         MessageID = "error.xml.require_node"
	MsgRequireNodes        MessageID = "error.xml.require_nodes"
	MsgRequireAttribute    MessageID = "error.xml.require_attribute"
	MsgUnexpectedElement   MessageID = "error.xml.unexpected_element"
	MsgRootNotPackage      MessageID = "error.package.root_not_package"
	MsgUniqueIDMissing     MessageID = "error.package.unique_id_property_missing"
	MsgRootNotContainer    MessageID = "error.container.root_not_container"
	MsgRootFileNonexistent MessageID = "error.container.rootfile_nonexistent"
	MsgMimetypeMissing     MessageID = "warning.mimetype.missing"
	MsgMimetypeCompressed  MessageID = "warning.mimetype.compressed"
	MsgMimetypeInvalid     MessageID = "warning.mimetype.invalid"
)

// Catalog renders human-readable text for a message id.
type Catalog interface {
	Format(id MessageID, args ...any) string
}

// MessageCatalog is a Catalog backed by a TOML document.
type MessageCatalog struct {
	messages map[string]string
}

//go:embed messages.toml
var defaultMessages []byte

var defaultCatalog = sync.OnceValue(func() *MessageCatalog {
	c, err := LoadCatalog(bytes.NewReader(defaultMessages))
	if err != nil {
		panic(fmt.Sprintf("diag: embedded message catalog: %v", err))
	}
	return c
})

// DefaultCatalog returns the built-in English catalog.
func DefaultCatalog() *MessageCatalog {
	return defaultCatalog()
}

// LoadCatalog reads a catalog from TOML. Every leaf must be a string.
func LoadCatalog(r io.Reader) (*MessageCatalog, error) {
	var tree map[string]any
	if err := toml.NewDecoder(r).Decode(&tree); err != nil {
		return nil, fmt.Errorf("failed to decode message catalog: %w", err)
	}

	c := &MessageCatalog{messages: make(map[string]string)}
	if err := c.flatten("", tree); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *MessageCatalog) flatten(prefix string, tree map[string]any) error {
	for k, v := range tree {
		key := k
		if prefix != "" {
			key = prefix + "." + k
		}
		switch v := v.(type) {
		case string:
			c.messages[key] = v
		case map[string]any:
			if err := c.flatten(key, v); err != nil {
				return err
			}
		default:
			return fmt.Errorf("message %q: expected a string, got %T", key, v)
		}
	}
	return nil
}

// IDs returns the message ids in the catalog, sorted.
func (c *MessageCatalog) IDs() []string {
	ids := make([]string, 0, len(c.messages))
	for id := range c.messages {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

// Format renders the message with the given positional arguments. Unknown ids
// render as the id followed by the arguments.
func (c *MessageCatalog) Format(id MessageID, args ...any) string {
	pattern, ok := c.messages[string(id)]
	if !ok {
		if len(args) == 0 {
			return string(id)
		}
		return fmt.Sprintf("%s %v", id, args)
	}
	return substitute(pattern, args)
}

// substitute replaces {N} placeholders. Placeholders without a matching
// argument are left as written.
func substitute(pattern string, args []any) string {
	var b strings.Builder
	for {
		open := strings.IndexByte(pattern, '{')
		if open < 0 {
			b.WriteString(pattern)
			return b.String()
		}
		end := strings.IndexByte(pattern[open:], '}')
		if end < 0 {
			b.WriteString(pattern)
			return b.String()
		}
		end += open

		b.WriteString(pattern[:open])
		n, err := strconv.Atoi(pattern[open+1 : end])
		if err != nil || n < 0 || n >= len(args) {
			b.WriteString(pattern[open : end+1])
		} else {
			fmt.Fprint(&b, args[n])
		}
		pattern = pattern[end+1:]
	}
}
