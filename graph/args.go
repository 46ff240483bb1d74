package graph

import (
	"encoding/base64"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/judyrop/sil-crm/apperr"
	"github.com/judyrop/sil-crm/store"
)

const cursorPrefix = "cursor:"

func formatID(id uint) string {
	return strconv.FormatUint(uint64(id), 10)
}

func parseID(v interface{}) (uint, bool) {
	switch id := v.(type) {
	case string:
		n, err := strconv.ParseUint(strings.TrimSpace(id), 10, 0)
		if err != nil || n == 0 {
			return 0, false
		}
		return uint(n), true
	case int:
		if id <= 0 {
			return 0, false
		}
		return uint(id), true
	}
	return 0, false
}

func encodeCursor(offset int) string {
	return base64.StdEncoding.EncodeToString([]byte(cursorPrefix + strconv.Itoa(offset)))
}

func decodeCursor(cursor string) (int, error) {
	raw, err := base64.StdEncoding.DecodeString(cursor)
	if err != nil || !strings.HasPrefix(string(raw), cursorPrefix) {
		return 0, apperr.Validation("Invalid cursor")
	}
	n, err := strconv.Atoi(strings.TrimPrefix(string(raw), cursorPrefix))
	if err != nil || n < 0 {
		return 0, apperr.Validation("Invalid cursor")
	}
	return n, nil
}

// pageArgs reads first/after into a store.Page. after is exclusive.
func pageArgs(args map[string]interface{}) (store.Page, error) {
	var p store.Page
	if first, ok := args["first"].(int); ok {
		if first < 0 {
			return p, apperr.Validation("first cannot be negative")
		}
		p.First = &first
	}
	if after, ok := args["after"].(string); ok && after != "" {
		n, err := decodeCursor(after)
		if err != nil {
			return p, err
		}
		p.Offset = n + 1
	}
	return p, nil
}

func connectionOf(nodes []interface{}, total int64, offset int) map[string]interface{} {
	edges := make([]interface{}, len(nodes))
	for i, n := range nodes {
		edges[i] = map[string]interface{}{
			"cursor": encodeCursor(offset + i),
			"node":   n,
		}
	}
	info := map[string]interface{}{
		"hasNextPage":     int64(offset+len(nodes)) < total,
		"hasPreviousPage": offset > 0,
		"startCursor":     nil,
		"endCursor":       nil,
	}
	if len(nodes) > 0 {
		info["startCursor"] = encodeCursor(offset)
		info["endCursor"] = encodeCursor(offset + len(nodes) - 1)
	}
	return map[string]interface{}{
		"totalCount": int(total),
		"edges":      edges,
		"pageInfo":   info,
	}
}

func argString(args map[string]interface{}, name string) string {
	s, _ := args[name].(string)
	return s
}

func argInt(args map[string]interface{}, name string) *int {
	if n, ok := args[name].(int); ok {
		return &n
	}
	return nil
}

func argDecimal(args map[string]interface{}, name string) *decimal.Decimal {
	if d, ok := args[name].(decimal.Decimal); ok {
		return &d
	}
	return nil
}

func argTime(args map[string]interface{}, name string) *time.Time {
	switch t := args[name].(type) {
	case time.Time:
		return &t
	case *time.Time:
		return t
	}
	return nil
}

func argID(args map[string]interface{}, name string) (uint, error) {
	id, ok := parseID(args[name])
	if !ok {
		return 0, apperr.Validation(fmt.Sprintf("Invalid %s", name))
	}
	return id, nil
}
