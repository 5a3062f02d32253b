package ginmiddleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Page404 Page404
func Page404(c *gin.Context) {
	if c.Request.Method == http.MethodGet && !isAPI(c) {
		c.String(http.StatusNotFound, "404 nothing here")
		return
	}
	c.Set("status", 0)
	c.Set("detail", "not found")
	c.JSON(http.StatusNotFound, c.Keys)
}

// Page405 Page405
func Page405(c *gin.Context) {
	c.String(http.StatusMethodNotAllowed, "405 "+c.Request.Method+" is not allowed")
}

// PageDefault 健康检查
func PageDefault(c *gin.Context) {
	c.String(http.StatusOK, "ok")
}

func isAPI(c *gin.Context) bool {
	return len(c.Request.URL.Path) >= 5 && c.Request.URL.Path[:5] == "/api/"
}
