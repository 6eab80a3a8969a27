package httpapi

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"internship/internal/attendance"
	"internship/internal/model"
)

// studentKey is the id a student's own check-ins are filed under.
func studentKey(u model.User) string {
	if id := strings.TrimSpace(u.StudentID); id != "" {
		return id
	}
	return strings.TrimSpace(u.StudentCode)
}

func (s *Server) recordCheckin(c *gin.Context) {
	var in attendance.Input
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, err)
		return
	}
	u := currentUser(c)
	in.StudentID = studentKey(u)
	if in.StudentName == "" {
		in.StudentName = u.FullName
		if in.StudentName == "" {
			in.StudentName = u.Name
		}
	}
	entry, err := s.checkins.Record(c.Request.Context(), in)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, entry)
}

func (s *Server) listCheckins(c *gin.Context) {
	u := currentUser(c)
	studentID := c.Query("student_id")
	if u.Role == model.RoleStudent {
		studentID = studentKey(u)
		if studentID == "" {
			c.JSON(http.StatusOK, gin.H{"checkins": []model.CheckinEntry{}})
			return
		}
	}
	entries, err := s.checkins.List(c.Request.Context(), studentID)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"checkins": entries})
}

func (s *Server) updateCheckin(c *gin.Context) {
	var e attendance.Edit
	if err := c.ShouldBindJSON(&e); err != nil {
		badRequest(c, err)
		return
	}
	entry, err := s.checkins.Update(c.Request.Context(), c.Param("id"), e)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, entry)
}

func (s *Server) deleteCheckin(c *gin.Context) {
	if err := s.checkins.Delete(c.Request.Context(), c.Param("id")); err != nil {
		s.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) importCheckins(c *gin.Context) {
	var body struct {
		Entries []attendance.Input `json:"entries" binding:"required"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		badRequest(c, err)
		return
	}
	entries, err := s.checkins.Import(c.Request.Context(), body.Entries)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"imported": len(entries), "checkins": entries})
}
