package api

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/reportmill/internal/auth"
	"github.com/reportmill/internal/ledger"
	"github.com/reportmill/internal/models"
	"github.com/reportmill/internal/service"
	"github.com/reportmill/internal/storage"
)

type Server struct {
	db      *gorm.DB
	reports *service.ReportService
	ledger  *ledger.Ledger
	store   *storage.LocalStore
	tokens  *auth.Tokens
	router  *gin.Engine
}

func NewServer(db *gorm.DB, reports *service.ReportService, led *ledger.Ledger, store *storage.LocalStore, tokens *auth.Tokens) *Server {
	server := &Server{
		db:      db,
		reports: reports,
		ledger:  led,
		store:   store,
		tokens:  tokens,
		router:  gin.Default(),
	}

	server.setupRoutes()
	return server
}

func (s *Server) setupRoutes() {
	// Public routes
	s.router.POST("/api/v1/auth/login", s.login)
	s.router.POST("/api/v1/auth/register", s.register)

	// Protected routes (require authentication)
	api := s.router.Group("/api/v1")
	api.Use(s.tokens.Middleware(s.db))

	schedules := api.Group("/schedules")
	{
		schedules.GET("", s.listSchedules)
		schedules.GET("/:id", s.getSchedule)
		schedules.POST("", auth.RequireRole(models.RoleAdmin, models.RoleUser), s.createSchedule)
		schedules.PUT("/:id", auth.RequireRole(models.RoleAdmin, models.RoleUser), s.updateSchedule)
		schedules.DELETE("/:id", auth.RequireRole(models.RoleAdmin, models.RoleUser), s.deleteSchedule)
		schedules.POST("/:id/run", auth.RequireRole(models.RoleAdmin, models.RoleUser), s.runSchedule)
	}

	executions := api.Group("/executions")
	{
		executions.GET("", s.listExecutions)
		executions.GET("/:id", s.getExecution)
		executions.GET("/:id/download", s.downloadExecution)
	}
}

func (s *Server) Router() *gin.Engine {
	return s.router
}

func (s *Server) Start(port int) error {
	return s.router.Run(fmt.Sprintf(":%d", port))
}

func (s *Server) listSchedules(c *gin.Context) {
	filter := service.ListFilter{
		ReportType: c.Query("report_type"),
		Frequency:  c.Query("frequency"),
	}
	if active := c.Query("active"); active != "" {
		activeBool := active == "true"
		filter.Active = &activeBool
	}
	if page, err := strconv.Atoi(c.Query("page")); err == nil {
		filter.Page = page
	}
	if limit, err := strconv.Atoi(c.Query("limit")); err == nil {
		filter.Limit = limit
	}

	schedules, err := s.reports.List(filter, auth.CurrentUser(c))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, schedules)
}

func (s *Server) getSchedule(c *gin.Context) {
	id, ok := s.scheduleID(c)
	if !ok {
		return
	}

	sched, err := s.reports.Get(id, auth.CurrentUser(c))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, sched)
}

func (s *Server) createSchedule(c *gin.Context) {
	var input service.CreateInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	sched, err := s.reports.Create(input, auth.CurrentUser(c))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, sched)
}

func (s *Server) updateSchedule(c *gin.Context) {
	id, ok := s.scheduleID(c)
	if !ok {
		return
	}

	var patch service.UpdatePatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	sched, err := s.reports.Update(id, patch, auth.CurrentUser(c))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, sched)
}

func (s *Server) deleteSchedule(c *gin.Context) {
	id, ok := s.scheduleID(c)
	if !ok {
		return
	}

	if err := s.reports.Delete(id, auth.CurrentUser(c)); err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "schedule deleted successfully"})
}

func (s *Server) runSchedule(c *gin.Context) {
	id, ok := s.scheduleID(c)
	if !ok {
		return
	}

	outcome, err := s.reports.ExecuteNow(c.Request.Context(), id, auth.CurrentUser(c))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, outcome)
}

func (s *Server) listExecutions(c *gin.Context) {
	var scheduleID *uint
	if v := c.Query("schedule_id"); v != "" {
		parsed, err := strconv.ParseUint(v, 10, 32)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid schedule_id"})
			return
		}
		id := uint(parsed)
		scheduleID = &id
	}
	page, _ := strconv.Atoi(c.Query("page"))
	limit, _ := strconv.Atoi(c.Query("limit"))

	execs, err := s.ledger.History(scheduleID, page, limit)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, execs)
}

func (s *Server) getExecution(c *gin.Context) {
	exec, err := s.ledger.Get(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "execution not found"})
		return
	}
	c.JSON(http.StatusOK, exec)
}

func (s *Server) downloadExecution(c *gin.Context) {
	exec, err := s.ledger.Get(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "execution not found"})
		return
	}
	if exec.Status != models.ExecutionStatusCompleted || exec.FilePath == "" {
		c.JSON(http.StatusNotFound, gin.H{"error": "no artifact for this execution"})
		return
	}

	content, err := s.store.Open(exec.FilePath)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to read artifact"})
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", exec.FileName))
	c.Data(http.StatusOK, exec.MIMEType, content)
}

func (s *Server) login(c *gin.Context) {
	var loginReq struct {
		Username string `json:"username" binding:"required"`
		Password string `json:"password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&loginReq); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var user models.User
	if err := s.db.Where("username = ?", loginReq.Username).First(&user).Error; err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
		return
	}
	if !user.CheckPassword(loginReq.Password) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
		return
	}

	token, err := s.tokens.Generate(&user)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to generate token"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"token": token})
}

func (s *Server) register(c *gin.Context) {
	var req struct {
		Username string `json:"username" binding:"required"`
		Password string `json:"password" binding:"required"`
		Email    string `json:"email" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	user := models.User{
		Username: req.Username,
		Email:    req.Email,
		Role:     models.RoleUser,
		IsActive: true,
	}
	if err := user.SetPassword(req.Password); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to hash password"})
		return
	}
	if err := s.db.Create(&user).Error; err != nil {
		c.JSON(http.StatusConflict, gin.H{"error": "username or email already taken"})
		return
	}

	c.JSON(http.StatusCreated, user)
}

func (s *Server) scheduleID(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid schedule ID"})
		return 0, false
	}
	return uint(id), true
}

// fail maps service errors onto HTTP statuses.
func (s *Server) fail(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrValidation):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrForbidden):
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}
