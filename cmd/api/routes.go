package main

import (
	"encoding/csv"
	"errors"
	"log"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"classtrack/internal/attendance"
	"classtrack/internal/auth"
	"classtrack/internal/config"
	"classtrack/internal/evaluate"
	"classtrack/internal/mailer"
	"classtrack/internal/qr"
	"classtrack/internal/queue"
)

func registerRoutes(r *gin.Engine, cfg config.App, repo *attendance.Repository, svc *attendance.Service, q queue.Queue, mail mailer.Sender) {
	r.POST("/v1/auth/login", func(c *gin.Context) {
		var req struct {
			Username string `json:"username" binding:"required"`
			Password string `json:"password" binding:"required"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		user, err := repo.GetUserByUsername(c.Request.Context(), req.Username)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		if user == nil || !auth.CheckPassword(user.PasswordHash, req.Password) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
			return
		}

		tokens, err := auth.Issue(user.ID, user.Role, user.Name, cfg.JWTIssuer, cfg.JWTSigningKey, cfg.AccessTTL, cfg.RefreshTTL)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "token issue failed"})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"access_token":  tokens.AccessToken,
			"refresh_token": tokens.RefreshToken,
			"expires_at":    tokens.AccessExp.Unix(),
			"role":          user.Role,
			"name":          user.Name,
			"user_id":       user.ID,
		})
	})

	v1 := r.Group("/v1", auth.UserAuth(cfg.JWTSigningKey, cfg.JWTIssuer))

	v1.GET("/me", func(c *gin.Context) {
		claims := auth.ClaimsFrom(c)
		classes, err := repo.ListClassesForUser(c.Request.Context(), claims.Subject)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"user_id": claims.Subject,
			"role":    claims.Role,
			"name":    claims.Name,
			"classes": classes,
		})
	})

	registerClassRoutes(v1, repo, svc)
	registerAttendanceRoutes(v1, svc, q)
	registerUserRoutes(v1, repo, mail)
}

func registerClassRoutes(v1 *gin.RouterGroup, repo *attendance.Repository, svc *attendance.Service) {
	staffOnly := auth.RequireRole("teacher", "admin")
	adminOnly := auth.RequireRole("admin")

	v1.GET("/classes", func(c *gin.Context) {
		claims := auth.ClaimsFrom(c)
		var (
			classes []attendance.Class
			err     error
		)
		if claims.Role == "student" {
			classes, err = repo.ListClassesForUser(c.Request.Context(), claims.Subject)
		} else {
			classes, err = repo.ListClasses(c.Request.Context(), c.Query("include_archived") == "true")
		}
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"classes": classes})
	})

	v1.GET("/classes/:id", func(c *gin.Context) {
		class, ok := loadClass(c, repo)
		if !ok {
			return
		}
		c.JSON(http.StatusOK, class)
	})

	v1.POST("/classes", adminOnly, func(c *gin.Context) {
		var req classRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		class := req.class("")
		if !checkSchedule(c, repo, class) {
			return
		}

		created, err := repo.CreateClass(c.Request.Context(), class)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		if created.TeacherID != "" {
			_ = repo.Enroll(c.Request.Context(), created.ID, created.TeacherID)
		}
		c.JSON(http.StatusCreated, created)
	})

	v1.PUT("/classes/:id", adminOnly, func(c *gin.Context) {
		existing, ok := loadClass(c, repo)
		if !ok {
			return
		}
		var req classRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		class := req.class(existing.ID)
		class.Archived = existing.Archived
		if !checkSchedule(c, repo, class) {
			return
		}

		if err := repo.UpdateClass(c.Request.Context(), class); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, class)
	})

	v1.POST("/classes/:id/archive", adminOnly, func(c *gin.Context) {
		class, ok := loadClass(c, repo)
		if !ok {
			return
		}
		if err := repo.SetArchived(c.Request.Context(), class.ID, true); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"archived": true})
	})

	v1.POST("/classes/:id/unarchive", adminOnly, func(c *gin.Context) {
		class, ok := loadClass(c, repo)
		if !ok {
			return
		}
		// Re-activating puts the slot back in play, so it re-runs the
		// same conflict check as create.
		class.Archived = false
		if !checkSchedule(c, repo, *class) {
			return
		}
		if err := repo.SetArchived(c.Request.Context(), class.ID, false); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"archived": false})
	})

	v1.DELETE("/classes/:id", adminOnly, func(c *gin.Context) {
		class, ok := loadClass(c, repo)
		if !ok {
			return
		}
		if err := repo.DeleteClass(c.Request.Context(), class.ID); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"deleted": true})
	})

	v1.GET("/classes/:id/enrollments", staffOnly, func(c *gin.Context) {
		class, ok := loadClass(c, repo)
		if !ok {
			return
		}
		users, err := repo.ListEnrolledUsers(c.Request.Context(), class.ID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"users": users})
	})

	v1.POST("/classes/:id/enrollments", staffOnly, func(c *gin.Context) {
		class, ok := loadClass(c, repo)
		if !ok {
			return
		}
		var req struct {
			UserID string `json:"user_id" binding:"required"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		user, err := repo.GetUser(c.Request.Context(), req.UserID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		if user == nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
			return
		}
		if err := repo.Enroll(c.Request.Context(), class.ID, req.UserID); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusCreated, gin.H{"enrolled": true})
	})

	v1.DELETE("/classes/:id/enrollments/:userID", staffOnly, func(c *gin.Context) {
		if err := repo.Unenroll(c.Request.Context(), c.Param("id"), c.Param("userID")); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"enrolled": false})
	})

	v1.GET("/classes/:id/summary", staffOnly, func(c *gin.Context) {
		summary, scheduled, err := svc.Summary(c.Request.Context(), c.Param("id"))
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"scheduled_today": scheduled, "summary": summary})
	})

	v1.GET("/classes/:id/tallies", staffOnly, func(c *gin.Context) {
		tallies, err := svc.Tallies(c.Request.Context(), c.Param("id"))
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"tallies": tallies})
	})
}

// classRequest is the create/update payload for a class schedule.
type classRequest struct {
	Name      string   `json:"name" binding:"required"`
	Room      string   `json:"room" binding:"required"`
	TeacherID string   `json:"teacher_id"`
	Days      []string `json:"days" binding:"required"`
	TimeRange string   `json:"time" binding:"required"`
}

func (req classRequest) class(id string) attendance.Class {
	return attendance.Class{
		ID:        id,
		Name:      req.Name,
		Room:      req.Room,
		TeacherID: req.TeacherID,
		Days:      req.Days,
		TimeRange: req.TimeRange,
	}
}

// checkSchedule validates the time window and rejects room clashes with
// any other active class. Writes the error response itself; returns false
// when the caller should stop.
func checkSchedule(c *gin.Context, repo *attendance.Repository, class attendance.Class) bool {
	rng, ok := evaluate.ParseRange(class.TimeRange)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "time must be \"HH:mm - HH:mm\""})
		return false
	}
	if rng.Start.Minutes() >= rng.End.Minutes() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "start time must be before end time"})
		return false
	}

	others, err := repo.ListActiveClasses(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return false
	}
	for _, other := range others {
		if other.ID == class.ID {
			continue
		}
		if evaluate.Conflicts(class.Schedule(), other.Schedule()) {
			c.JSON(http.StatusConflict, gin.H{"error": "schedule conflicts with " + other.Name + " in " + other.Room})
			return false
		}
	}
	return true
}

func loadClass(c *gin.Context, repo *attendance.Repository) (*attendance.Class, bool) {
	class, err := repo.GetClass(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return nil, false
	}
	if class == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "class not found"})
		return nil, false
	}
	return class, true
}

func registerAttendanceRoutes(v1 *gin.RouterGroup, svc *attendance.Service, q queue.Queue) {
	repo := svc.Repo()
	staffOnly := auth.RequireRole("teacher", "admin")
	adminOnly := auth.RequireRole("admin")

	v1.GET("/classes/:id/attendance", func(c *gin.Context) {
		claims := auth.ClaimsFrom(c)
		filter := attendance.RowFilter{
			Date: c.Query("date"),
			Name: c.Query("name"),
		}
		if claims.Role == "student" {
			filter.UserID = claims.Subject
			filter.Name = ""
		}

		rows, err := svc.Rows(c.Request.Context(), c.Param("id"), filter)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}

		if c.Query("format") == "csv" {
			writeRowsCSV(c, rows)
			return
		}
		c.JSON(http.StatusOK, gin.H{"rows": rows})
	})

	v1.POST("/classes/:id/logs/:logID/excuse", staffOnly, func(c *gin.Context) {
		excused, err := svc.ToggleExcuse(c.Request.Context(), c.Param("logID"))
		if err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "log not found"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"excused": excused})
	})

	v1.DELETE("/classes/:id/logs", adminOnly, func(c *gin.Context) {
		from, to := c.Query("from"), c.Query("to")
		if from == "" || to == "" || from > to {
			c.JSON(http.StatusBadRequest, gin.H{"error": "from and to dates required, from <= to"})
			return
		}
		deleted, err := repo.DeleteLogsInRange(c.Request.Context(), c.Param("id"), from, to)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"deleted": deleted})
	})

	v1.POST("/scans", auth.RequireRole("scanner", "admin"), func(c *gin.Context) {
		var req attendance.ScanRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		if req.Username == "" || req.ClassID == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "username and class_id required"})
			return
		}

		logRec, err := svc.RecordScan(c.Request.Context(), req)
		switch {
		case errors.Is(err, attendance.ErrUnknownUser):
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
			return
		case errors.Is(err, attendance.ErrNotEnrolled):
			c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
			return
		case errors.Is(err, attendance.ErrNoOpenLog):
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
			return
		case err != nil:
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}

		if err := q.Publish(c.Request.Context(), queue.Message{Type: queue.TypeScan, Body: []byte(logRec.ID)}); err != nil {
			log.Printf("queue publish failed: %v", err)
		}

		c.JSON(http.StatusAccepted, gin.H{"log_id": logRec.ID, "date": logRec.Date, "time_in": logRec.TimeIn, "time_out": logRec.TimeOut})
	})
}

func writeRowsCSV(c *gin.Context, rows []attendance.Row) {
	c.Header("Content-Type", "text/csv")
	c.Header("Content-Disposition", `attachment; filename="attendance.csv"`)
	w := csv.NewWriter(c.Writer)
	_ = w.Write([]string{"Name", "Date", "Time In", "Time Out", "Scanner In", "Scanner Out", "Status"})
	for _, row := range rows {
		_ = w.Write([]string{row.UserName, row.Date, row.TimeIn, row.TimeOut, row.ScannerIn, row.ScannerOut, row.DisplayedAs})
	}
	w.Flush()
}

func registerUserRoutes(v1 *gin.RouterGroup, repo *attendance.Repository, mail mailer.Sender) {
	adminOnly := auth.RequireRole("admin")

	v1.GET("/users", adminOnly, func(c *gin.Context) {
		users, err := repo.ListUsers(c.Request.Context())
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"users": users})
	})

	v1.POST("/users", adminOnly, func(c *gin.Context) {
		var req struct {
			Username string `json:"username" binding:"required"`
			Name     string `json:"name" binding:"required"`
			Email    string `json:"email"`
			Role     string `json:"role" binding:"required"`
			Password string `json:"password" binding:"required"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		switch req.Role {
		case "student", "teacher", "admin", "scanner":
		default:
			c.JSON(http.StatusBadRequest, gin.H{"error": "unknown role"})
			return
		}

		hash, err := auth.HashPassword(req.Password)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		user, err := repo.CreateUser(c.Request.Context(), attendance.User{
			Username:     req.Username,
			Name:         req.Name,
			Email:        req.Email,
			Role:         req.Role,
			PasswordHash: hash,
		})
		if err != nil {
			if strings.Contains(err.Error(), "duplicate") {
				c.JSON(http.StatusConflict, gin.H{"error": "username taken"})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}

		// The account holder gets their generated credentials by mail;
		// a delivery failure does not undo the creation.
		if user.Email != "" {
			if err := mail.Send(mailer.CredentialsNotice(user.Email, user.Username, req.Password)); err != nil {
				log.Printf("credentials mail to %s failed: %v", user.Email, err)
			}
		}
		c.JSON(http.StatusCreated, user)
	})

	v1.PUT("/users/:id", adminOnly, func(c *gin.Context) {
		user, ok := loadUser(c, repo)
		if !ok {
			return
		}
		var req struct {
			Name  string `json:"name"`
			Email string `json:"email"`
			Role  string `json:"role"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		if req.Name != "" {
			user.Name = req.Name
		}
		if req.Email != "" {
			user.Email = req.Email
		}
		if req.Role != "" {
			user.Role = req.Role
		}
		if err := repo.UpdateUser(c.Request.Context(), *user); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, user)
	})

	v1.DELETE("/users/:id", adminOnly, func(c *gin.Context) {
		if err := repo.DeleteUser(c.Request.Context(), c.Param("id")); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"deleted": true})
	})

	v1.POST("/users/:id/password", func(c *gin.Context) {
		claims := auth.ClaimsFrom(c)
		if claims.Role != "admin" && claims.Subject != c.Param("id") {
			c.JSON(http.StatusForbidden, gin.H{"error": "forbidden"})
			return
		}
		user, ok := loadUser(c, repo)
		if !ok {
			return
		}
		var req struct {
			OldPassword string `json:"old_password"`
			NewPassword string `json:"new_password" binding:"required,min=8"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		// Admins may reset without the old password; owners must prove it.
		if claims.Subject == user.ID && !auth.CheckPassword(user.PasswordHash, req.OldPassword) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "old password incorrect"})
			return
		}
		if auth.CheckPassword(user.PasswordHash, req.NewPassword) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "new password must differ from the old one"})
			return
		}

		hash, err := auth.HashPassword(req.NewPassword)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		if err := repo.SetPassword(c.Request.Context(), user.ID, hash); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}

		// On an admin reset the user never typed the new password, so
		// they get it by mail; self-service changes stay quiet.
		if claims.Subject != user.ID && user.Email != "" {
			if err := mail.Send(mailer.CredentialsNotice(user.Email, user.Username, req.NewPassword)); err != nil {
				log.Printf("credentials mail to %s failed: %v", user.Email, err)
			}
		}
		c.JSON(http.StatusOK, gin.H{"changed": true})
	})

	v1.GET("/users/:id/qr", func(c *gin.Context) {
		claims := auth.ClaimsFrom(c)
		if claims.Role == "student" && claims.Subject != c.Param("id") {
			c.JSON(http.StatusForbidden, gin.H{"error": "forbidden"})
			return
		}
		user, ok := loadUser(c, repo)
		if !ok {
			return
		}
		png, err := qr.BadgePNG(user.Username, 256)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.Data(http.StatusOK, "image/png", png)
	})
}

func loadUser(c *gin.Context, repo *attendance.Repository) (*attendance.User, bool) {
	user, err := repo.GetUser(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return nil, false
	}
	if user == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
		return nil, false
	}
	return user, true
}
