package pagination

import (
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func parseQuery(query string) Params {
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest("GET", "/?"+query, nil)
	return Parse(c)
}

func TestParse(t *testing.T) {
	assert.Equal(t, Params{Page: 1, Limit: 20}, parseQuery(""))
	assert.Equal(t, Params{Page: 3, Limit: 5}, parseQuery("page=3&limit=5"))
	assert.Equal(t, Params{Page: 1, Limit: 100}, parseQuery("page=-2&limit=500"))
	assert.Equal(t, Params{Page: 1, Limit: 20}, parseQuery("page=abc&limit=0"))
}

func TestMeta(t *testing.T) {
	assert.Equal(t, 3, Params{Page: 1, Limit: 10}.Meta(21).TotalPages)
	assert.Equal(t, 0, Params{Page: 1, Limit: 10}.Meta(0).TotalPages)
	assert.Equal(t, int64(10), Params{Page: 1, Limit: 10}.Meta(10).Total)
}
