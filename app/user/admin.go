package user

import (
	"bitwise74/account-api/internal"
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

type idsBody struct {
	UserIDs []string `json:"userIds"`
}

func UserList(c *gin.Context, d *internal.Deps) {
	started := time.Now()
	accounts, err := d.Admin.List(c.Request.Context())
	d.Metrics.Observe("list_accounts", started, err)

	if err != nil {
		fail(c, "list_accounts", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data":  accounts,
		"count": len(accounts),
	})
}

func UserBlock(c *gin.Context, d *internal.Deps) {
	bulk(c, d, "block_accounts", d.Admin.BlockMany, "Users blocked successfully", "updatedCount")
}

func UserUnblock(c *gin.Context, d *internal.Deps) {
	bulk(c, d, "unblock_accounts", d.Admin.UnblockMany, "Users unblocked successfully", "updatedCount")
}

func UserDelete(c *gin.Context, d *internal.Deps) {
	bulk(c, d, "delete_accounts", d.Admin.DeleteMany, "Users deleted successfully", "deletedCount")
}

func bulk(c *gin.Context, d *internal.Deps, op string, fn func(context.Context, []string) (int64, error), msg, countKey string) {
	var data idsBody
	if !bind(c, &data) {
		return
	}

	started := time.Now()
	n, err := fn(c.Request.Context(), data.UserIDs)
	d.Metrics.Observe(op, started, err)

	if err != nil {
		fail(c, op, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": msg,
		countKey:  n,
	})
}

func UserDeleteUnverified(c *gin.Context, d *internal.Deps) {
	started := time.Now()
	n, err := d.Admin.PurgeUnverified(c.Request.Context())
	d.Metrics.Observe("purge_unverified", started, err)

	if err != nil {
		fail(c, "purge_unverified", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":      fmt.Sprintf("Deleted %d unverified users.", n),
		"deletedCount": n,
	})
}
