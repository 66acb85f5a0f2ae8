package server

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	apperrors "finsight/internal/errors"
	"finsight/internal/models"
)

const maxUploadBytes = 10 << 20

// errorBody is the uniform error response shape.
func errorBody(msg string) gin.H {
	return gin.H{"error": msg, "timestamp": time.Now().UTC().Format(time.RFC3339)}
}

type chatRequest struct {
	ChatID  string `json:"chat_id"`
	Message string `json:"message" binding:"required"`
}

type chatResponse struct {
	ChatID   string `json:"chat_id"`
	Response string `json:"response"`
}

type marketQueryRequest struct {
	Query string `json:"query" binding:"required"`
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) handleChat(c *gin.Context) {
	var req chatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorBody("message is required"))
		return
	}

	chatID := req.ChatID
	if chatID == "" {
		chatID = uuid.NewString()
	}

	reply, err := s.deps.Assistant.Chat(c.Request.Context(), chatID, req.Message)
	if err != nil {
		s.log.Error().Err(err).Str("chat_id", chatID).Msg("chat failed")
		c.JSON(http.StatusBadGateway, errorBody("assistant unavailable"))
		return
	}

	c.JSON(http.StatusOK, chatResponse{ChatID: chatID, Response: reply})
}

func (s *Server) handleListChats(c *gin.Context) {
	chats, err := s.deps.Conversations.ListChats(c.Request.Context())
	if err != nil {
		s.log.Error().Err(err).Msg("listing chats failed")
		c.JSON(http.StatusInternalServerError, errorBody("failed to list chats"))
		return
	}
	c.JSON(http.StatusOK, gin.H{"chats": chats, "count": len(chats)})
}

func (s *Server) handleChatHistory(c *gin.Context) {
	info, err := s.deps.Conversations.ChatInfo(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, apperrors.ErrChatNotFound) {
			c.JSON(http.StatusNotFound, errorBody("chat not found"))
			return
		}
		s.log.Error().Err(err).Msg("loading chat failed")
		c.JSON(http.StatusInternalServerError, errorBody("failed to load chat"))
		return
	}
	c.JSON(http.StatusOK, info)
}

func (s *Server) handleChatDocuments(c *gin.Context) {
	docs, err := s.deps.Conversations.Documents(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.log.Error().Err(err).Msg("listing documents failed")
		c.JSON(http.StatusInternalServerError, errorBody("failed to list documents"))
		return
	}
	c.JSON(http.StatusOK, gin.H{"documents": docs, "count": len(docs)})
}

func (s *Server) handleDeleteChat(c *gin.Context) {
	chatID := c.Param("id")

	if err := s.deps.Conversations.DeleteChat(c.Request.Context(), chatID); err != nil {
		if errors.Is(err, apperrors.ErrChatNotFound) {
			c.JSON(http.StatusNotFound, errorBody("chat not found"))
			return
		}
		s.log.Error().Err(err).Str("chat_id", chatID).Msg("deleting chat failed")
		c.JSON(http.StatusInternalServerError, errorBody("failed to delete chat"))
		return
	}

	if s.deps.PurgeDocuments != nil {
		if err := s.deps.PurgeDocuments(c.Request.Context(), chatID); err != nil {
			s.log.Error().Err(err).Str("chat_id", chatID).Msg("purging chat documents failed")
		}
	}

	c.JSON(http.StatusOK, gin.H{"deleted": chatID})
}

func (s *Server) handleMarketRefresh(c *gin.Context) {
	result, err := s.deps.Refresher.Refresh(c.Request.Context())
	if err != nil {
		s.log.Error().Err(err).Msg("market refresh failed")
		c.JSON(http.StatusBadGateway, errorBody(err.Error()))
		return
	}
	c.JSON(http.StatusOK, result)
}

func (s *Server) handleMarketQuery(c *gin.Context) {
	var req marketQueryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorBody("query is required"))
		return
	}
	c.JSON(http.StatusOK, s.deps.Market.ResolveQuery(c.Request.Context(), req.Query))
}

func (s *Server) handleMarketSummary(c *gin.Context) {
	summary, err := s.deps.MarketSummary.Summary(c.Request.Context())
	if err != nil {
		s.log.Error().Err(err).Msg("market summary failed")
		c.JSON(http.StatusInternalServerError, errorBody("failed to summarize market data"))
		return
	}
	c.JSON(http.StatusOK, summary)
}

// handleDocumentUpload indexes an uploaded text document into the chat's
// collection so the assistant can retrieve it.
func (s *Server) handleDocumentUpload(c *gin.Context) {
	chatID := c.PostForm("chat_id")
	if chatID == "" {
		c.JSON(http.StatusBadRequest, errorBody("chat_id is required"))
		return
	}

	header, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, errorBody("file is required"))
		return
	}
	if header.Size > maxUploadBytes {
		c.JSON(http.StatusRequestEntityTooLarge, errorBody("file exceeds 10MB limit"))
		return
	}

	file, err := header.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, errorBody("unreadable file"))
		return
	}
	defer file.Close()

	content, err := io.ReadAll(io.LimitReader(file, maxUploadBytes+1))
	if err != nil {
		c.JSON(http.StatusBadRequest, errorBody("unreadable file"))
		return
	}

	docID := fmt.Sprintf("%s_%s", header.Filename, uuid.NewString()[:8])
	chunks := s.deps.Chunker.ChunkDocument(docID, string(content), map[string]string{
		"filename": header.Filename,
		"chat_id":  chatID,
	})
	if len(chunks) == 0 {
		c.JSON(http.StatusBadRequest, errorBody("document is empty"))
		return
	}

	collection := s.deps.Documents(chatID)
	if err := collection.Update(c.Request.Context(), chunks); err != nil {
		s.log.Error().Err(err).Str("chat_id", chatID).Msg("indexing document failed")
		c.JSON(http.StatusBadGateway, errorBody("failed to index document"))
		return
	}

	meta := models.DocumentMeta{
		Name:       header.Filename,
		Size:       header.Size,
		UploadedAt: time.Now().UTC().Format(time.RFC3339),
	}
	if err := s.deps.Conversations.SaveDocument(c.Request.Context(), chatID, meta); err != nil {
		s.log.Error().Err(err).Str("chat_id", chatID).Msg("recording document failed")
	}

	c.JSON(http.StatusOK, gin.H{
		"chat_id":  chatID,
		"filename": header.Filename,
		"chunks":   len(chunks),
	})
}
