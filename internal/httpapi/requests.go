package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"internship/internal/attachments"
	"internship/internal/internship"
	"internship/internal/model"
	"internship/internal/workflow"
)

// requestResponse decorates a request with what the viewer needs to render it.
type requestResponse struct {
	internship.View
	StatusLabel string         `json:"statusLabel"`
	Actions     []model.Action `json:"actions"`
}

func present(v internship.View, u model.User) requestResponse {
	actions := workflow.Actions(v.Status, u.Role)
	if actions == nil {
		actions = []model.Action{}
	}
	return requestResponse{View: v, StatusLabel: StatusLabel(v.Status), Actions: actions}
}

func (s *Server) listRequests(c *gin.Context) {
	u := currentUser(c)
	views, err := s.requests.List(c.Request.Context(), u)
	if err != nil {
		s.fail(c, err)
		return
	}
	out := make([]requestResponse, 0, len(views))
	for _, v := range views {
		out = append(out, present(v, u))
	}
	c.JSON(http.StatusOK, gin.H{"requests": out})
}

func (s *Server) submitRequest(c *gin.Context) {
	var sub internship.Submission
	if err := c.ShouldBindJSON(&sub); err != nil {
		badRequest(c, err)
		return
	}
	u := currentUser(c)
	r, err := s.requests.Submit(c.Request.Context(), u, sub)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, present(internship.View{Request: r}, u))
}

func (s *Server) getRequest(c *gin.Context) {
	u := currentUser(c)
	ctx := c.Request.Context()
	r, err := s.requests.Get(ctx, u, c.Param("id"))
	if err != nil {
		s.fail(c, err)
		return
	}
	p, err := s.requests.Progress(ctx, u, r.ID)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, present(internship.View{Request: r, Progress: p}, u))
}

func (s *Server) transitionRequest(c *gin.Context) {
	var body struct {
		Action model.Action `json:"action" binding:"required"`
		Reason string       `json:"reason"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		badRequest(c, err)
		return
	}
	u := currentUser(c)
	r, err := s.requests.Transition(c.Request.Context(), u, c.Param("id"), body.Action, body.Reason)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, present(internship.View{Request: r}, u))
}

func (s *Server) requestProgress(c *gin.Context) {
	id := c.Param("id")
	p, err := s.requests.Progress(c.Request.Context(), currentUser(c), id)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"requestId": id, "progress": p})
}

func (s *Server) requestHistory(c *gin.Context) {
	entries, err := s.requests.History(c.Request.Context(), currentUser(c), c.Param("id"))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"history": entries})
}

func (s *Server) setSupervisionAppointment(c *gin.Context) {
	var body model.SupervisionAppointment
	if err := c.ShouldBindJSON(&body); err != nil {
		badRequest(c, err)
		return
	}
	u := currentUser(c)
	s.respond(c, u)(s.requests.SetSupervisionAppointment(c.Request.Context(), u, c.Param("id"), body))
}

func (s *Server) setSupervisionReport(c *gin.Context) {
	var body model.SupervisionReport
	if err := c.ShouldBindJSON(&body); err != nil {
		badRequest(c, err)
		return
	}
	u := currentUser(c)
	s.respond(c, u)(s.requests.SetSupervisionReport(c.Request.Context(), u, c.Param("id"), body))
}

func (s *Server) setEvaluation(c *gin.Context) {
	var body struct {
		Criteria map[string]int `json:"criteria"`
		Comment  string         `json:"comment"`
		Score    *float64       `json:"score" binding:"required"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		badRequest(c, err)
		return
	}
	u := currentUser(c)
	form := model.EvaluationForm{Criteria: body.Criteria, Comment: body.Comment}
	s.respond(c, u)(s.requests.SetEvaluation(c.Request.Context(), u, c.Param("id"), form, *body.Score))
}

func (s *Server) issueCertificate(c *gin.Context) {
	u := currentUser(c)
	s.respond(c, u)(s.requests.IssueCertificate(c.Request.Context(), u, c.Param("id")))
}

func (s *Server) uploadPaymentProof(c *gin.Context) {
	header, err := c.FormFile("file")
	if err != nil {
		badRequest(c, err)
		return
	}
	f, err := header.Open()
	if err != nil {
		badRequest(c, err)
		return
	}
	defer f.Close()

	u := currentUser(c)
	file := attachments.File{Name: header.Filename, Size: header.Size, Reader: f}
	s.respond(c, u)(s.requests.AttachPaymentProof(c.Request.Context(), u, c.Param("id"), file))
}

// respond writes the updated request or the mapped error.
func (s *Server) respond(c *gin.Context, u model.User) func(model.Request, error) {
	return func(r model.Request, err error) {
		if err != nil {
			s.fail(c, err)
			return
		}
		c.JSON(http.StatusOK, present(internship.View{Request: r}, u))
	}
}
