package service

import (
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/jjenkins/classwatch/internal/model"
)

var errNullNode = errors.New("node is null")

// dig walks a chain of object keys through a GraphQL data payload. A null value at
// the end of the chain is reported as errNullNode so callers can tell a missing
// record apart from schema drift.
func dig(raw json.RawMessage, path ...string) (json.RawMessage, error) {
	cur := raw
	for i, key := range path {
		if isNull(cur) {
			return nil, fmt.Errorf("%s: %w", strings.Join(path[:i], "."), errNullNode)
		}
		var obj map[string]json.RawMessage
		if err := json.Unmarshal(cur, &obj); err != nil {
			return nil, fmt.Errorf("%s is not an object: %w", strings.Join(path[:i], "."), err)
		}
		next, ok := obj[key]
		if !ok {
			return nil, fmt.Errorf("missing key %s", strings.Join(path[:i+1], "."))
		}
		cur = next
	}
	if isNull(cur) {
		return nil, fmt.Errorf("%s: %w", strings.Join(path, "."), errNullNode)
	}
	return cur, nil
}

// list decodes a JSON array of records
func list(raw json.RawMessage) ([]json.RawMessage, error) {
	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, fmt.Errorf("expected a list: %w", err)
	}
	return items, nil
}

// edgeNodes extracts edges[].node from a relay connection
func edgeNodes(conn json.RawMessage) ([]json.RawMessage, error) {
	edges, err := dig(conn, "edges")
	if err != nil {
		return nil, err
	}
	items, err := list(edges)
	if err != nil {
		return nil, err
	}
	nodes := make([]json.RawMessage, 0, len(items))
	for i, item := range items {
		node, err := dig(item, "node")
		if err != nil {
			return nil, fmt.Errorf("edge %d: %w", i, err)
		}
		nodes = append(nodes, node)
	}
	return nodes, nil
}

func isNull(raw json.RawMessage) bool {
	s := strings.TrimSpace(string(raw))
	return s == "" || s == "null"
}

// SeatChecksum fingerprints the parts of a section a watcher cares about. A stored
// section gets a new snapshot only when its checksum changes.
func SeatChecksum(s model.Section) string {
	fingerprint := fmt.Sprintf("%d|%d|%s|%s|%s",
		s.OpenSeats,
		s.TotalSeats,
		strings.Join(s.Instructors, ","),
		s.Days,
		s.Location(),
	)
	hash := md5.Sum([]byte(fingerprint))
	return hex.EncodeToString(hash[:])
}
