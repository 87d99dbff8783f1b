package api

import (
	"errors"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/queosk/queosk/internal/domain"
	"github.com/queosk/queosk/pkg/observability"
	"github.com/queosk/queosk/pkg/xresponse"
)

// QueueHandler handles waiting queue endpoints
type QueueHandler struct {
	queueUC domain.QueueUsecase
	guard   *RoleGuard
}

// NewQueueHandler creates a new queue handler
func NewQueueHandler(queueUC domain.QueueUsecase) *QueueHandler {
	return &QueueHandler{
		queueUC: queueUC,
		guard:   NewRoleGuard(),
	}
}

// queueIndexResponse shows positions one based; 0 means the party is being seated.
type queueIndexResponse struct {
	UserQueueIndex int64 `json:"user_queue_index"`
	QueueRemaining int64 `json:"queue_remaining"`
}

type queueEntryResponse struct {
	ID            int64     `json:"id"`
	UserID        int64     `json:"user_id"`
	NumberOfParty int       `json:"number_of_party"`
	CreatedAt     time.Time `json:"created_at"`
}

type userQueueResponse struct {
	QueueID         int64     `json:"queue_id"`
	RestaurantID    int64     `json:"restaurant_id"`
	RestaurantName  string    `json:"restaurant_name"`
	RestaurantImage *string   `json:"restaurant_image_url"`
	Category        string    `json:"category"`
	NumberOfParty   int       `json:"number_of_party"`
	UserQueueIndex  int64     `json:"user_queue_index"`
	CreatedAt       time.Time `json:"created_at"`
}

func toIndexResponse(index *domain.QueueIndex) queueIndexResponse {
	return queueIndexResponse{
		UserQueueIndex: index.UserQueueIndex + 1,
		QueueRemaining: index.QueueRemaining,
	}
}

// CreateQueue joins the caller to a restaurant queue
func (h *QueueHandler) CreateQueue(c *gin.Context) {
	userID, restaurantID, ok := h.userAndRestaurant(c)
	if !ok {
		return
	}

	var req domain.QueueCreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		xresponse.ValidationError(c, err.Error())
		return
	}

	index, err := h.queueUC.CreateQueue(c.Request.Context(), &req, userID, restaurantID)
	if err != nil {
		h.handleError(c, err, "Failed to join queue")
		return
	}

	h.guard.LogAccess(c, "join_queue", strconv.FormatInt(restaurantID, 10))
	xresponse.Created(c, "Joined queue", toIndexResponse(index))
}

// GetUserQueueNumber returns the caller's position at a restaurant
func (h *QueueHandler) GetUserQueueNumber(c *gin.Context) {
	userID, restaurantID, ok := h.userAndRestaurant(c)
	if !ok {
		return
	}

	index, err := h.queueUC.GetUserQueueNumber(c.Request.Context(), restaurantID, userID)
	if err != nil {
		h.handleError(c, err, "Failed to get queue position")
		return
	}

	xresponse.Success(c, "Queue position retrieved", toIndexResponse(index))
}

// DeleteUserQueue cancels the caller's wait at a restaurant
func (h *QueueHandler) DeleteUserQueue(c *gin.Context) {
	userID, restaurantID, ok := h.userAndRestaurant(c)
	if !ok {
		return
	}

	if err := h.queueUC.DeleteUserQueue(c.Request.Context(), restaurantID, userID); err != nil {
		h.handleError(c, err, "Failed to leave queue")
		return
	}

	h.guard.LogAccess(c, "leave_queue", strconv.FormatInt(restaurantID, 10))
	xresponse.Success(c, "Left queue", nil)
}

// GetUserQueueList returns every active or just served queue of the caller
func (h *QueueHandler) GetUserQueueList(c *gin.Context) {
	userID, _, exists := h.guard.GetCurrentSubject(c)
	if !exists {
		xresponse.Unauthorized(c, "Authentication required")
		return
	}

	queues, err := h.queueUC.GetUserQueueList(c.Request.Context(), userID)
	if err != nil {
		h.handleError(c, err, "Failed to get user queues")
		return
	}

	data := make([]userQueueResponse, 0, len(queues))
	for _, q := range queues {
		data = append(data, userQueueResponse{
			QueueID:         q.Entry.ID,
			RestaurantID:    q.Restaurant.ID,
			RestaurantName:  q.Restaurant.RestaurantName,
			RestaurantImage: q.Restaurant.ImageURL,
			Category:        q.Restaurant.Category,
			NumberOfParty:   q.Entry.NumberOfParty,
			UserQueueIndex:  q.UserQueueIndex + 1,
			CreatedAt:       q.Entry.CreatedAt,
		})
	}

	xresponse.Success(c, "User queues retrieved", data)
}

// GetQueueOfRestaurant returns the number of waiting teams, no login required
func (h *QueueHandler) GetQueueOfRestaurant(c *gin.Context) {
	restaurantID, ok := restaurantParam(c)
	if !ok {
		return
	}

	summary, err := h.queueUC.GetQueueOfRestaurant(c.Request.Context(), restaurantID)
	if err != nil {
		h.handleError(c, err, "Failed to get queue summary")
		return
	}

	xresponse.Success(c, "Queue summary retrieved", summary)
}

// GetQueueList returns the calling restaurant's waiting list
func (h *QueueHandler) GetQueueList(c *gin.Context) {
	restaurantID, _, exists := h.guard.GetCurrentSubject(c)
	if !exists {
		xresponse.Unauthorized(c, "Authentication required")
		return
	}

	list, err := h.queueUC.GetQueueList(c.Request.Context(), restaurantID)
	if err != nil {
		h.handleError(c, err, "Failed to get queue list")
		return
	}

	data := make([]queueEntryResponse, 0, len(list.Entries))
	for _, e := range list.Entries {
		data = append(data, queueEntryResponse{
			ID:            e.ID,
			UserID:        e.UserID,
			NumberOfParty: e.NumberOfParty,
			CreatedAt:     e.CreatedAt,
		})
	}

	xresponse.Success(c, "Queue list retrieved", gin.H{"queue_list": data})
}

// PopTheFirstTeamOfQueue seats the front team of the calling restaurant
func (h *QueueHandler) PopTheFirstTeamOfQueue(c *gin.Context) {
	restaurantID, _, exists := h.guard.GetCurrentSubject(c)
	if !exists {
		xresponse.Unauthorized(c, "Authentication required")
		return
	}

	if err := h.queueUC.PopTheFirstTeamOfQueue(c.Request.Context(), restaurantID); err != nil {
		h.handleError(c, err, "Failed to advance queue")
		return
	}

	h.guard.LogAccess(c, "pop_queue", strconv.FormatInt(restaurantID, 10))
	xresponse.Success(c, "Queue advanced", nil)
}

func (h *QueueHandler) userAndRestaurant(c *gin.Context) (userID, restaurantID int64, ok bool) {
	userID, _, exists := h.guard.GetCurrentSubject(c)
	if !exists {
		xresponse.Unauthorized(c, "Authentication required")
		return 0, 0, false
	}

	restaurantID, ok = restaurantParam(c)
	return userID, restaurantID, ok
}

func restaurantParam(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("restaurantId"), 10, 64)
	if err != nil || id <= 0 {
		xresponse.BadRequest(c, "Invalid restaurant id")
		return 0, false
	}
	return id, true
}

func (h *QueueHandler) handleError(c *gin.Context, err error, message string) {
	switch {
	case errors.Is(err, domain.ErrInvalidRestaurant):
		xresponse.InvalidRestaurant(c, "Restaurant does not exist")
	case errors.Is(err, domain.ErrQueueAlreadyExists):
		xresponse.QueueAlreadyExists(c, "Already waiting at this restaurant")
	case errors.Is(err, domain.ErrQueueNotFound):
		xresponse.QueueNotFound(c, "Queue does not exist")
	case errors.Is(err, domain.ErrInvalidPartySize):
		xresponse.BadRequest(c, err.Error())
	default:
		observability.RecordSystemError(c, "queue_error", "queue_handler", err)
		xresponse.InternalServerError(c, message)
	}
}
