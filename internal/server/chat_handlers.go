package server

import (
	"unitoku/internal/models"
	"unitoku/internal/service"

	"github.com/gofiber/fiber/v2"
)

// GetChatRooms handles GET /api/chat/rooms
func (s *Server) GetChatRooms(c *fiber.Ctx) error {
	rooms, err := s.chatService.ListRooms(c.UserContext(), currentUserID(c))
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.JSON(rooms)
}

// CreatePrivateRoom handles POST /api/chat/rooms/private. An existing room
// with the same user is returned instead of creating a second one.
func (s *Server) CreatePrivateRoom(c *fiber.Ctx) error {
	var req struct {
		UserID uint `json:"user_id"`
	}
	if err := bindJSON(c, &req); err != nil {
		return nil
	}
	room, err := s.chatService.CreatePrivateRoom(c.UserContext(), currentUserID(c), req.UserID)
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.JSON(room)
}

// CreateGroupRoom handles POST /api/chat/rooms/group
func (s *Server) CreateGroupRoom(c *fiber.Ctx) error {
	var req service.CreateGroupRoomInput
	if err := bindJSON(c, &req); err != nil {
		return nil
	}
	req.UserID = currentUserID(c)

	room, err := s.chatService.CreateGroupRoom(c.UserContext(), req)
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(room)
}

// GetChatMessages handles GET /api/chat/rooms/:id/messages and marks the room read.
func (s *Server) GetChatMessages(c *fiber.Ctx) error {
	roomID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	page := parsePagination(c, 50)

	msgs, err := s.chatService.ListMessages(c.UserContext(), currentUserID(c), roomID, page.Limit, page.Offset)
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.JSON(msgs)
}

// SendChatMessage handles POST /api/chat/rooms/:id/messages
func (s *Server) SendChatMessage(c *fiber.Ctx) error {
	roomID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	var req struct {
		Content string `json:"content"`
	}
	if err := bindJSON(c, &req); err != nil {
		return nil
	}

	msg, err := s.chatService.SendMessage(c.UserContext(), service.SendMessageInput{
		UserID:  currentUserID(c),
		RoomID:  roomID,
		Content: req.Content,
	})
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(msg)
}
