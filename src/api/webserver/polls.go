package webserver

import (
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/votesnap/votesnap/src/api/data"
	"github.com/votesnap/votesnap/src/api/polls"
	"github.com/votesnap/votesnap/src/api/types"
)

type Polls struct {
	db         *gorm.DB
	rdb        *redis.Client
	svc        *polls.Service
	attemptMax int
}

func NewPolls(db *gorm.DB, rdb *redis.Client, attemptMax int) Polls {
	return Polls{db: db, rdb: rdb, svc: polls.NewService(db), attemptMax: attemptMax}
}

// writeServiceError maps the domain error taxonomy onto distinct HTTP
// responses; the frontend branches on them. Anything unrecognized is a
// storage failure: logged, surfaced generically.
func writeServiceError(c *gin.Context, err error) {
	var verr *polls.ValidationError
	switch {
	case errors.Is(err, polls.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"err": err.Error()})
	case errors.Is(err, polls.ErrAccessDenied):
		c.JSON(http.StatusForbidden, gin.H{"err": "access denied, this is a private poll"})
	case errors.Is(err, polls.ErrNotAuthorized):
		c.JSON(http.StatusForbidden, gin.H{"err": err.Error()})
	case errors.Is(err, polls.ErrExpired),
		errors.Is(err, polls.ErrAlreadyVoted),
		errors.Is(err, polls.ErrInvalidOption),
		errors.Is(err, polls.ErrTooManyOptions):
		c.JSON(http.StatusBadRequest, gin.H{"err": err.Error()})
	case errors.As(err, &verr):
		c.JSON(http.StatusBadRequest, gin.H{"err": verr.Msg})
	default:
		log.Printf("poll store: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"err": "service unavailable"})
	}
}

func (p Polls) Create(c *gin.Context) {
	var req struct {
		Title                   string   `json:"title" binding:"required"`
		Options                 []string `json:"options" binding:"required"`
		ExpiryHours             int      `json:"expiryHours" binding:"required"`
		IsPublic                *bool    `json:"isPublic"`
		AllowMultipleVotes      bool     `json:"allowMultipleVotes"`
		AllowMultipleOptions    bool     `json:"allowMultipleOptions"`
		MaxSelectableOptions    int      `json:"maxSelectableOptions"`
		ShowResultsBeforeVoting bool     `json:"showResultsBeforeVoting"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"err": err.Error()})
		return
	}

	isPublic := true
	if req.IsPublic != nil {
		isPublic = *req.IsPublic
	}
	poll, err := p.svc.Create(c, polls.CreateInput{
		Title:                   req.Title,
		Options:                 req.Options,
		ExpiryHours:             req.ExpiryHours,
		IsPublic:                isPublic,
		AllowMultipleVotes:      req.AllowMultipleVotes,
		AllowMultipleOptions:    req.AllowMultipleOptions,
		MaxSelectableOptions:    req.MaxSelectableOptions,
		ShowResultsBeforeVoting: req.ShowResultsBeforeVoting,
		CreatedBy:               c.GetString("userID"),
	})
	if err != nil {
		writeServiceError(c, err)
		return
	}
	p.render(c, http.StatusCreated, poll)
}

func (p Polls) Get(c *gin.Context) {
	caller := callerFrom(c, p.db)
	pollID := c.Param("id")
	client := clientKey(c)

	if data.CodeFailures(c, p.rdb, pollID, client) >= int64(p.attemptMax) {
		c.JSON(http.StatusForbidden, gin.H{"err": "too many access code attempts, try again later"})
		return
	}
	poll, err := p.svc.Get(c, pollID, caller, c.Query("accessCode"))
	if errors.Is(err, polls.ErrAccessDenied) {
		data.RegisterCodeFailure(c, p.rdb, pollID, client)
	}
	if err != nil {
		writeServiceError(c, err)
		return
	}
	p.render(c, http.StatusOK, poll)
}

func (p Polls) Vote(c *gin.Context) {
	var req struct {
		OptionID   string   `json:"optionId"`
		OptionIDs  []string `json:"optionIds"`
		AccessCode string   `json:"accessCode"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"err": err.Error()})
		return
	}
	selection := req.OptionIDs
	if len(selection) == 0 && req.OptionID != "" {
		selection = []string{req.OptionID}
	}

	pollID := c.Param("id")
	client := clientKey(c)
	if data.CodeFailures(c, p.rdb, pollID, client) >= int64(p.attemptMax) {
		c.JSON(http.StatusForbidden, gin.H{"err": "too many access code attempts, try again later"})
		return
	}
	poll, err := p.svc.Vote(c, pollID, c.GetString("userID"), selection, req.AccessCode)
	if errors.Is(err, polls.ErrAccessDenied) {
		data.RegisterCodeFailure(c, p.rdb, pollID, client)
	}
	if err != nil {
		writeServiceError(c, err)
		return
	}
	p.render(c, http.StatusOK, poll)
}

func (p Polls) DeclareResults(c *gin.Context) {
	poll, err := p.svc.DeclareResults(c, c.Param("id"), callerFrom(c, p.db))
	if err != nil {
		writeServiceError(c, err)
		return
	}
	p.render(c, http.StatusOK, poll)
}

func (p Polls) Delete(c *gin.Context) {
	if err := p.svc.Delete(c, c.Param("id"), callerFrom(c, p.db)); err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "poll deleted"})
}

func (p Polls) Public(c *gin.Context) {
	list, err := p.svc.ListPublic(c)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	p.renderList(c, list)
}

func (p Polls) Mine(c *gin.Context) {
	list, err := p.svc.ListByCreator(c, c.GetString("userID"))
	if err != nil {
		writeServiceError(c, err)
		return
	}
	p.renderList(c, list)
}

func (p Polls) AdminDashboard(c *gin.Context) {
	list, err := p.svc.ListAll(c, callerFrom(c, p.db))
	if err != nil {
		writeServiceError(c, err)
		return
	}
	p.renderList(c, list)
}

func (p Polls) render(c *gin.Context, status int, poll *types.Poll) {
	view, err := p.svc.View(c, poll, callerFrom(c, p.db))
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(status, view)
}

func (p Polls) renderList(c *gin.Context, list []types.Poll) {
	views, err := p.svc.Views(c, list, callerFrom(c, p.db))
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, views)
}

// clientKey identifies the source of access-code attempts: the user
// when authenticated, the client IP otherwise.
func clientKey(c *gin.Context) string {
	if id := c.GetString("userID"); id != "" {
		return id
	}
	return c.ClientIP()
}
