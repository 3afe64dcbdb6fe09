package controllers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/taskly/chat_backend/database"
	"github.com/taskly/chat_backend/metrics"
	"github.com/taskly/chat_backend/middleware"
	"github.com/taskly/chat_backend/models"
	"github.com/taskly/chat_backend/websocket"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type SendInviteInput struct {
	ToUID string `json:"to_uid" binding:"required" example:"9f1c2d3e"`
}

type RespondInviteInput struct {
	InviteID string `json:"invite_id" binding:"required" example:"b4e8a3c1"`
	Action   string `json:"action" binding:"required,oneof=accept reject" example:"accept"`
}

// pairInvites loads every invite touching uid and keeps only the newest one
// per unordered pair. Deduping before the direction split means a pair whose
// latest invite points the other way is not resurfaced by a stale
// predecessor.
func pairInvites(uid string) ([]models.Invite, error) {
	var invites []models.Invite
	if err := database.DB.Where("from_uid = ? OR to_uid = ?", uid, uid).
		Order("created_at DESC").
		Preload("From").
		Preload("To").
		Find(&invites).Error; err != nil {
		return nil, err
	}
	return models.LatestPerPair(invites), nil
}

// GetIncomingInvites godoc
// @Summary Get invites addressed to the authenticated user
// @Description Returns pairs whose newest invite targets the authenticated user
// @Tags invites
// @Produce json
// @Security BearerAuth
// @Success 200 {object} map[string]interface{} "List of incoming invites"
// @Failure 401 {object} map[string]string "Unauthorized"
// @Failure 500 {object} map[string]string "Server error"
// @Router /api/invites/incoming [get]
func GetIncomingInvites(c *gin.Context) {
	uid := c.MustGet(middleware.CtxUserUID).(string)

	invites, err := pairInvites(uid)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch invites"})
		return
	}

	incoming := make([]models.Invite, 0, len(invites))
	for _, inv := range invites {
		if inv.ToUID == uid {
			incoming = append(incoming, inv)
		}
	}

	c.JSON(http.StatusOK, gin.H{"invites": incoming})
}

// GetOutgoingInvites godoc
// @Summary Get invites sent by the authenticated user
// @Description Returns pairs whose newest invite was sent by the authenticated user
// @Tags invites
// @Produce json
// @Security BearerAuth
// @Success 200 {object} map[string]interface{} "List of outgoing invites"
// @Failure 401 {object} map[string]string "Unauthorized"
// @Failure 500 {object} map[string]string "Server error"
// @Router /api/invites/outgoing [get]
func GetOutgoingInvites(c *gin.Context) {
	uid := c.MustGet(middleware.CtxUserUID).(string)

	invites, err := pairInvites(uid)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch invites"})
		return
	}

	outgoing := make([]models.Invite, 0, len(invites))
	for _, inv := range invites {
		if inv.FromUID == uid {
			outgoing = append(outgoing, inv)
		}
	}

	c.JSON(http.StatusOK, gin.H{"invites": outgoing})
}

// SendInvite godoc
// @Summary Send a connection invite to another user
// @Description Creates a pending invite and upserts the pair's chat room. Idempotent: an existing pending or accepted invite between the pair makes this a no-op.
// @Tags invites
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param invite body SendInviteInput true "Invite Creation"
// @Success 200 {object} map[string]interface{} "Existing invite returned"
// @Success 201 {object} map[string]interface{} "Invitation sent successfully"
// @Failure 400 {object} map[string]string "Invalid input"
// @Failure 401 {object} map[string]string "Unauthorized"
// @Failure 404 {object} map[string]string "User not found"
// @Failure 500 {object} map[string]string "Server error"
// @Router /api/invites [post]
func SendInvite(c *gin.Context) {
	fromUID := c.MustGet(middleware.CtxUserUID).(string)

	var input SendInviteInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if input.ToUID == fromUID {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Cannot invite yourself"})
		return
	}

	var receiver models.User
	if err := database.DB.First(&receiver, "uid = ?", input.ToUID).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
		return
	}

	roomID := models.RoomIDFor(fromUID, input.ToUID)

	var invite models.Invite
	var existing *models.Invite

	// The duplicate check and the insert share a transaction so a failed
	// insert also rolls back the room upsert. Under read committed two
	// simultaneous sends can still both pass the check; listings collapse
	// each pair to its newest invite, so a racing duplicate stays hidden.
	err := database.DB.Transaction(func(tx *gorm.DB) error {
		var found models.Invite
		err := tx.Where(
			"((from_uid = ? AND to_uid = ?) OR (from_uid = ? AND to_uid = ?)) AND status IN ?",
			fromUID, input.ToUID, input.ToUID, fromUID,
			[]string{models.InviteStatusPending, models.InviteStatusAccepted},
		).Order("created_at DESC").First(&found).Error
		if err == nil {
			existing = &found
			return nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		// Upsert the room with both members before the invite exists, so
		// either side has access immediately. Merge semantics: the room row
		// is insert-or-ignore and membership rows only ever accumulate.
		room := models.Room{ID: roomID, Name: "Direct Message"}
		if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&room).Error; err != nil {
			return err
		}
		members := []models.RoomMember{
			{RoomID: roomID, UserUID: fromUID, LastReadAt: time.Now()},
			{RoomID: roomID, UserUID: input.ToUID, LastReadAt: time.Now()},
		}
		if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&members).Error; err != nil {
			return err
		}

		invite = models.Invite{
			FromUID: fromUID,
			ToUID:   input.ToUID,
			Status:  models.InviteStatusPending,
		}
		return tx.Create(&invite).Error
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create invitation"})
		return
	}

	if existing != nil {
		c.JSON(http.StatusOK, gin.H{
			"message": "Invite already exists",
			"invite":  existing,
			"room_id": roomID,
		})
		return
	}

	metrics.InvitesTotal.WithLabelValues("sent").Inc()

	// Load relationships for the response and the push notification
	database.DB.Preload("From").Preload("To").First(&invite, "id = ?", invite.ID)
	websocket.NotifyInviteReceived(invite)

	c.JSON(http.StatusCreated, gin.H{
		"message": "Invitation sent successfully",
		"invite":  invite,
		"room_id": roomID,
	})
}

// RespondToInvite godoc
// @Summary Respond to an invitation
// @Description Accept or reject a pending invite. Accepting merges the recipient into the pair's room and returns the canonical room id.
// @Tags invites
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param response body RespondInviteInput true "Invitation Response"
// @Success 200 {object} map[string]interface{} "Response processed successfully"
// @Failure 400 {object} map[string]string "Invalid input"
// @Failure 401 {object} map[string]string "Unauthorized"
// @Failure 404 {object} map[string]string "Invitation not found"
// @Failure 500 {object} map[string]string "Server error"
// @Router /api/invites/respond [post]
func RespondToInvite(c *gin.Context) {
	uid := c.MustGet(middleware.CtxUserUID).(string)

	var input RespondInviteInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var invite models.Invite
	if err := database.DB.Where("id = ? AND to_uid = ?", input.InviteID, uid).
		First(&invite).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Invitation not found"})
		return
	}

	roomID := models.RoomIDFor(invite.FromUID, invite.ToUID)

	if input.Action == "accept" {
		// Re-accepting an accepted invite leaves status and membership
		// unchanged; only pending -> rejected is refused.
		if invite.Status == models.InviteStatusRejected {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invitation already rejected"})
			return
		}

		alreadyAccepted := invite.Status == models.InviteStatusAccepted
		invite.Status = models.InviteStatusAccepted
		if err := database.DB.Save(&invite).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update invitation"})
			return
		}

		// Merge the accepting user into the room. Insert-or-ignore keeps
		// this idempotent and never removes existing members.
		member := models.RoomMember{RoomID: roomID, UserUID: uid, LastReadAt: time.Now()}
		if err := database.DB.Clauses(clause.OnConflict{DoNothing: true}).Create(&member).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to join room"})
			return
		}

		if !alreadyAccepted {
			metrics.InvitesTotal.WithLabelValues("accepted").Inc()
			websocket.NotifyInviteResponded(invite)
		}

		c.JSON(http.StatusOK, gin.H{
			"message": "Invitation accepted successfully",
			"room_id": roomID,
		})
		return
	}

	if invite.Status != models.InviteStatusPending {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invitation already processed"})
		return
	}

	invite.Status = models.InviteStatusRejected
	if err := database.DB.Save(&invite).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update invitation"})
		return
	}

	metrics.InvitesTotal.WithLabelValues("rejected").Inc()
	websocket.NotifyInviteResponded(invite)

	c.JSON(http.StatusOK, gin.H{"message": "Invitation rejected successfully"})
}
