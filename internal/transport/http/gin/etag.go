package httpgin

import (
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// dashboardMaxAge bounds how long an admin client may reuse stats without
// revalidating. The stats are recomputed on every request.
const dashboardMaxAge = "private, max-age=30"

// statsTag is a weak validator over the encoded dashboard and the ranking
// it was built with.
func statsTag(ranking string, body []byte) string {
	h := sha256.New()
	h.Write([]byte(ranking))
	h.Write([]byte{0})
	h.Write(body)
	return `W/"` + base64.RawURLEncoding.EncodeToString(h.Sum(nil)[:12]) + `"`
}

// notModified reports whether an If-None-Match header matches tag under
// weak comparison. The header may list several tags or be "*".
func notModified(header, tag string) bool {
	if header == "" {
		return false
	}
	want := strings.TrimPrefix(tag, "W/")
	for _, candidate := range strings.Split(header, ",") {
		candidate = strings.TrimSpace(candidate)
		if candidate == "*" || strings.TrimPrefix(candidate, "W/") == want {
			return true
		}
	}
	return false
}

// writeDashboard sends the stats envelope, or 304 when the admin client
// already holds the same snapshot.
func writeDashboard(c *gin.Context, ranking string, stats any) {
	body, err := json.Marshal(gin.H{"success": true, "stats": stats})
	if err != nil {
		_ = c.Error(err)
		abortErr(c, http.StatusInternalServerError, codeInternal, msgInternal)
		return
	}

	tag := statsTag(ranking, body)
	c.Header("ETag", tag)
	c.Header("Cache-Control", dashboardMaxAge)
	c.Header("Vary", "Authorization")
	if notModified(c.GetHeader("If-None-Match"), tag) {
		c.Status(http.StatusNotModified)
		return
	}

	c.Data(http.StatusOK, "application/json; charset=utf-8", body)
}
