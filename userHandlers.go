package main

import (
	"errors"
	"net/http"

	"bitbucket.org/wescanlabs/corescan_backend/config"
	"bitbucket.org/wescanlabs/corescan_backend/models"
	"bitbucket.org/wescanlabs/corescan_backend/utils"
	"github.com/gin-gonic/gin"
)

// requireUsername pulls the session username out of the request context.
// AuthMiddleware already validated the token; a missing username means no
// token was sent.
func requireUsername(c *gin.Context) (string, bool) {
	username, ok := utils.GetUsernameFromContext(c.Request.Context())
	if !ok || username == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return "", false
	}
	return username, true
}

func (app *application) loginHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var input models.LoginInput
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
			return
		}
		if err := utils.ValidateStruct(input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"errors": utils.ProcessValidationErrors(err)})
			return
		}

		if err := app.users.Authenticate(input.Username, input.Password); err != nil {
			if isStorageError(err) {
				config.LogError(app.logger, "userHandlers.go", "loginHandler", "authenticate", nil, err)
				c.JSON(http.StatusInternalServerError, gin.H{"error": "user store unavailable"})
				return
			}
			c.JSON(http.StatusUnauthorized, gin.H{"success": false, "message": "incorrect username or password"})
			return
		}

		token, err := utils.JwtGenerate(input.Username)
		if err != nil {
			config.LogError(app.logger, "userHandlers.go", "loginHandler", "generate token", nil, err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "could not create session"})
			return
		}

		c.JSON(http.StatusOK, gin.H{"success": true, "token": token})
	}
}

func (app *application) createUserHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := requireUsername(c); !ok {
			return
		}

		var input models.NewUser
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
			return
		}
		if err := utils.ValidateStruct(input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"errors": utils.ProcessValidationErrors(err)})
			return
		}

		if err := app.users.Create(input.Username, input.Password); err != nil {
			if errors.Is(err, utils.ErrorUserExists) {
				c.JSON(http.StatusConflict, gin.H{"success": false, "message": "user already exists"})
				return
			}
			config.LogError(app.logger, "userHandlers.go", "createUserHandler", "create user", nil, err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "could not create user"})
			return
		}

		c.JSON(http.StatusOK, gin.H{"success": true})
	}
}
