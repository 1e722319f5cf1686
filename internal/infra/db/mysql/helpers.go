package mysql

import (
    "encoding/json"
    "strings"
    "time"
)

func dashIfEmpty(s string) string {
    if strings.TrimSpace(s) == "" {
        return "-"
    }
    return s
}

// validJSON keeps valid documents as they are; anything else is wrapped
// as {"raw": ...} so the JSON column accepts it.
func validJSON(s string) string {
    if strings.TrimSpace(s) == "" {
        return "{}"
    }
    var js any
    if json.Unmarshal([]byte(s), &js) != nil {
        b, _ := json.Marshal(map[string]string{"raw": s})
        return string(b)
    }
    return s
}

func createdAt(t time.Time) time.Time {
    if t.IsZero() {
        return time.Now().UTC()
    }
    return t.UTC()
}

// limitOffset turns a 1-based page into LIMIT/OFFSET values.
func limitOffset(page, pageSize int) (int, int) {
    if page <= 0 { page = 1 }
    if pageSize <= 0 { pageSize = 20 }
    return pageSize, (page - 1) * pageSize
}
