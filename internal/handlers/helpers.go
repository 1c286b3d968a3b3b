package handlers

import (
	"sync"

	"github.com/feedora/backend/internal/models"
	"github.com/feedora/backend/internal/util"
	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

var registerOnce sync.Once

// RegisterValidators adds Feedora's binding rules to gin's validator.
func RegisterValidators() {
	registerOnce.Do(func() {
		if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
			_ = v.RegisterValidation("reactionkind", validReactionKind)
		}
	})
}

func validReactionKind(fl validator.FieldLevel) bool {
	return models.ReactionKind(fl.Field().String()).Valid()
}

// bindJSON binds the body into dst and writes a 400 on failure.
func bindJSON(c *gin.Context, dst any) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		util.RespondBindError(c, err)
		return false
	}
	return true
}

// pathID binds the :id route parameter. Ids are UUIDs; anything else is a
// 400 before it reaches a uuid column.
func pathID(c *gin.Context) (string, bool) {
	var uri struct {
		ID string `uri:"id" binding:"required,uuid"`
	}
	if err := c.ShouldBindUri(&uri); err != nil {
		util.RespondBindError(c, err)
		return "", false
	}
	return uri.ID, true
}

// offsetLimit reads ?offset=&limit= with zero meaning "use the default".
func offsetLimit(c *gin.Context) (offset, limit int, ok bool) {
	var err error
	if offset, err = util.QueryInt(c, "offset", 0); err != nil {
		util.RespondBadRequest(c, err.Error())
		return 0, 0, false
	}
	if limit, err = util.QueryInt(c, "limit", 0); err != nil {
		util.RespondBadRequest(c, err.Error())
		return 0, 0, false
	}
	return offset, limit, true
}
