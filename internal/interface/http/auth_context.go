package http

import (
	"github.com/gin-gonic/gin"

	"github.com/yanqian/drive-value/internal/domain/workspace"
)

const workspaceKey = "workspace"

func setWorkspace(c *gin.Context, ws *workspace.Workspace) {
	c.Set(workspaceKey, ws)
}

func getWorkspace(c *gin.Context) (*workspace.Workspace, bool) {
	value, ok := c.Get(workspaceKey)
	if !ok {
		return nil, false
	}
	ws, ok := value.(*workspace.Workspace)
	return ws, ok
}
