package postgres

import (
    "encoding/json"
    "strings"
    "time"
)

func stringOrDash(s string) string {
    if strings.TrimSpace(s) == "" {
        return "-"
    }
    return s
}

func jsonOrEmpty(s string) string {
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

func nowIfZero(t time.Time) time.Time {
    if t.IsZero() {
        return time.Now().UTC()
    }
    return t
}

func pageOffset(page, pageSize int) (int, int) {
    if page <= 0 { page = 1 }
    if pageSize <= 0 { pageSize = 20 }
    return pageSize, (page - 1) * pageSize
}
