package webserver

import (
	"errors"
	"log"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/votesnap/votesnap/src/api/data"
	"github.com/votesnap/votesnap/src/api/types"
)

type Auth struct {
	db        *gorm.DB
	rdb       *redis.Client
	jwtSecret []byte
}

func NewAuth(db *gorm.DB, rdb *redis.Client, secret []byte) Auth {
	return Auth{db: db, rdb: rdb, jwtSecret: secret}
}

type userBody struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
	Role  string `json:"role"`
}

func userResponse(u *types.User) userBody {
	return userBody{ID: u.ID, Email: u.Email, Name: u.Name, Role: u.Role}
}

func (a Auth) createUser(c *gin.Context, email, password, name, role string) (*types.User, bool) {
	email = strings.ToLower(strings.TrimSpace(email))
	var existing types.User
	if err := a.db.First(&existing, "email = ?", email).Error; err == nil {
		c.JSON(http.StatusBadRequest, gin.H{"err": "user already exists"})
		return nil, false
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"err": "failed to create user"})
		return nil, false
	}
	user := types.User{
		ID:       uuid.NewString(),
		Email:    email,
		Password: string(hash),
		Name:     name,
		Role:     role,
	}
	if err := a.db.Create(&user).Error; err != nil {
		log.Printf("create user: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"err": "failed to create user"})
		return nil, false
	}
	return &user, true
}

func (a Auth) Register(c *gin.Context) {
	var req struct {
		Email    string `json:"email" binding:"required,email"`
		Password string `json:"password" binding:"required,min=6"`
		Name     string `json:"name" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"err": err.Error()})
		return
	}
	user, ok := a.createUser(c, req.Email, req.Password, req.Name, types.RoleUser)
	if !ok {
		return
	}
	token, err := issueJWT(user.ID, a.jwtSecret)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"err": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"token": token, "user": userResponse(user)})
}

// RegisterAdmin creates an admin account. The route is gated on an
// existing admin via AdminMiddleware.
func (a Auth) RegisterAdmin(c *gin.Context) {
	var req struct {
		Email    string `json:"email" binding:"required,email"`
		Password string `json:"password" binding:"required,min=6"`
		Name     string `json:"name"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"err": err.Error()})
		return
	}
	user, ok := a.createUser(c, req.Email, req.Password, req.Name, types.RoleAdmin)
	if !ok {
		return
	}
	c.JSON(http.StatusCreated, gin.H{"user": userResponse(user)})
}

func (a Auth) Login(c *gin.Context) {
	var req struct {
		Email    string `json:"email" binding:"required,email"`
		Password string `json:"password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"err": err.Error()})
		return
	}
	var user types.User
	err := a.db.First(&user, "email = ?", strings.ToLower(strings.TrimSpace(req.Email))).Error
	if err != nil || bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)) != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"err": "invalid email or password"})
		return
	}
	token, err := issueJWT(user.ID, a.jwtSecret)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"err": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"token": token, "user": userResponse(&user)})
}

func (a Auth) Me(c *gin.Context) {
	var user types.User
	if err := a.db.First(&user, "id = ?", c.GetString("userID")).Error; err != nil {
		c.AbortWithStatus(http.StatusUnauthorized)
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": userResponse(&user)})
}

// ForgotPassword issues a single-use reset token. The response is the
// same whether or not the email exists. Delivery of the token is the
// mailer's job; here it is only minted and logged.
func (a Auth) ForgotPassword(c *gin.Context) {
	var req struct {
		Email string `json:"email" binding:"required,email"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"err": err.Error()})
		return
	}
	var user types.User
	if err := a.db.First(&user, "email = ?", strings.ToLower(strings.TrimSpace(req.Email))).Error; err == nil {
		token := uuid.NewString()
		if err := data.SetResetToken(c, a.rdb, token, user.ID); err != nil {
			log.Printf("store reset token: %v", err)
		} else {
			log.Printf("password reset token issued for %s", user.Email)
		}
	}
	c.JSON(http.StatusOK, gin.H{"message": "if the account exists, a reset email has been sent"})
}

func (a Auth) ResetPassword(c *gin.Context) {
	var req struct {
		Token    string `json:"token" binding:"required"`
		Password string `json:"password" binding:"required,min=6"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"err": err.Error()})
		return
	}
	userID, err := data.TakeResetToken(c, a.rdb, req.Token)
	if errors.Is(err, redis.Nil) {
		c.JSON(http.StatusUnauthorized, gin.H{"err": "invalid or expired reset token"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"err": "failed to reset password"})
		return
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"err": "failed to reset password"})
		return
	}
	if err := a.db.Model(&types.User{}).Where("id = ?", userID).
		Update("password", string(hash)).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"err": "failed to reset password"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "password updated"})
}
