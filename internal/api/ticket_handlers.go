package api

import (
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/pradeepmisra81/trudesk/internal/models"
	"github.com/pradeepmisra81/trudesk/internal/repository"
	"github.com/pradeepmisra81/trudesk/internal/tickets"
)

type TicketHandlers struct {
	service *tickets.Service
	logger  *log.Logger
}

// NewTicketHandlers wires the ticket list and detail endpoints.
func NewTicketHandlers(service *tickets.Service, logger *log.Logger) *TicketHandlers {
	if logger == nil {
		logger = log.Default()
	}
	return &TicketHandlers{service: service, logger: logger}
}

// listActive serves tickets in the new, open and pending states.
func (h *TicketHandlers) listActive(c *gin.Context) {
	h.list(c, &models.TicketQuery{
		Status: []int{models.StatusNew, models.StatusOpen, models.StatusPending},
	})
}

func (h *TicketHandlers) listByStatus(c *gin.Context) {
	status, err := strconv.Atoi(c.Param("status"))
	if err != nil || status < models.StatusNew || status > models.StatusClosed {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid status"})
		return
	}
	h.list(c, &models.TicketQuery{Status: []int{status}})
}

func (h *TicketHandlers) listAssigned(c *gin.Context) {
	h.list(c, &models.TicketQuery{
		Status:       []int{models.StatusNew, models.StatusOpen, models.StatusPending},
		AssignedSelf: true,
	})
}

func (h *TicketHandlers) listUnassigned(c *gin.Context) {
	h.list(c, &models.TicketQuery{
		Status:     []int{models.StatusNew, models.StatusOpen, models.StatusPending},
		Unassigned: true,
	})
}

// listFiltered serves the filter view; every parameter comes from the
// query string.
func (h *TicketHandlers) listFiltered(c *gin.Context) {
	q := tickets.BuildQuery(c.Request.URL.String(), c.Request.URL.Query(), 0)
	h.list(c, q)
}

func (h *TicketHandlers) list(c *gin.Context, q *models.TicketQuery) {
	user := currentUser(c)
	if q.Page == 0 {
		q.Page = pageParam(c)
	}
	if q.Limit == 0 {
		q.Limit = limitParam(c)
	}
	result, err := h.service.List(c.Request.Context(), user, q)
	if err != nil {
		h.logger.Printf("api: list tickets: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not list tickets"})
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *TicketHandlers) getByUID(c *gin.Context) {
	uid, err := strconv.ParseInt(c.Param("uid"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid ticket uid"})
		return
	}
	user := currentUser(c)
	ticket, err := h.service.GetByUID(c.Request.Context(), user, uid)
	switch {
	case errors.Is(err, repository.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "ticket not found"})
	case errors.Is(err, tickets.ErrForbidden):
		c.JSON(http.StatusForbidden, gin.H{"error": "ticket not visible"})
	case err != nil:
		h.logger.Printf("api: get ticket %d: %v", uid, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not load ticket"})
	default:
		c.JSON(http.StatusOK, gin.H{"ticket": ticket})
	}
}

func pageParam(c *gin.Context) int {
	page, err := strconv.Atoi(c.Query("page"))
	if err != nil || page < 0 {
		return 0
	}
	return page
}

func limitParam(c *gin.Context) int {
	limit, err := strconv.Atoi(c.Query("limit"))
	if err != nil {
		return 0
	}
	return limit
}
