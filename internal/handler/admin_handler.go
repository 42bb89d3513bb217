package handler

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
	"github.com/xuri/excelize/v2"

	"github.com/yourusername/marketplace-api/internal/domain/entity"
	"github.com/yourusername/marketplace-api/internal/middleware"
	apperrors "github.com/yourusername/marketplace-api/internal/pkg/errors"
	"github.com/yourusername/marketplace-api/internal/service"
)

// AdminAPI is the admin registry as seen by the HTTP layer.
type AdminAPI interface {
	List(ctx context.Context) ([]entity.AdminGrant, error)
	Promote(ctx context.Context, input service.PromoteInput) (*entity.AdminGrant, error)
	UpdateRole(ctx context.Context, grantID, role string) (*entity.AdminGrant, error)
	Demote(ctx context.Context, grantID string) error
	ExportRows(ctx context.Context, emit func(service.ExportRow) error) error
}

// AdminHandler обрабатывает запросы к реестру администраторов
type AdminHandler struct {
	adminService AdminAPI
}

func NewAdminHandler(adminService AdminAPI) *AdminHandler {
	return &AdminHandler{adminService: adminService}
}

// UpdateRoleRequest is the body of PUT /admins.
type UpdateRoleRequest struct {
	ID   string `json:"id"`
	Role string `json:"role"`
}

// ListAdmins возвращает все записи реестра, новые первыми
func (h *AdminHandler) ListAdmins(c *gin.Context) {
	grants, err := h.adminService.List(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, grants)
}

// Promote выдает роль администратора по email или user_id
func (h *AdminHandler) Promote(c *gin.Context) {
	var req service.PromoteInput
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	grant, err := h.adminService.Promote(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, grant)
}

// UpdateRole меняет роль существующей записи
func (h *AdminHandler) UpdateRole(c *gin.Context) {
	var req UpdateRoleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	grant, err := h.adminService.UpdateRole(c.Request.Context(), req.ID, req.Role)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, grant)
}

// Demote удаляет запись из реестра. id уже проверен ExtractUUIDParam.
func (h *AdminHandler) Demote(c *gin.Context) {
	grantID := c.GetString(middleware.ContextGrantID)
	if grantID == "" {
		respondError(c, fmt.Errorf("%w: admin id is required", apperrors.ErrValidation))
		return
	}
	if err := h.adminService.Demote(c.Request.Context(), grantID); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Admin removed"})
}

// ExportUsers выгружает справочник пользователей с признаком администратора в XLSX.
// Используем StreamWriter, чтобы не держать все ячейки в памяти.
func (h *AdminHandler) ExportUsers(c *gin.Context) {
	ctx := c.Request.Context()

	f := excelize.NewFile()
	defer f.Close()

	sheetName := "Users"
	f.SetSheetName("Sheet1", sheetName)

	sw, err := f.NewStreamWriter(sheetName)
	if err != nil {
		log.Ctx(ctx).Error().Err(err).Msg("[AdminHandler] Failed to create StreamWriter")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create Excel file", "error_type": errorTypeInternal})
		return
	}

	headers := []interface{}{"ID", "Email", "Full name", "Username", "Linked subject", "Admin", "Admin role", "Created at"}
	if err := sw.SetRow("A1", headers); err != nil {
		log.Ctx(ctx).Error().Err(err).Msg("[AdminHandler] Failed to write headers")
	}

	rowNum := 1
	err = h.adminService.ExportRows(ctx, func(r service.ExportRow) error {
		rowNum++
		admin := "No"
		if r.IsAdmin {
			admin = "Yes"
		}
		row := []interface{}{
			r.User.ID,
			sanitizeForExcel(r.User.Email),
			sanitizeForExcel(r.User.FullName),
			sanitizeForExcel(r.User.Username),
			r.User.Subject(),
			admin,
			sanitizeForExcel(r.AdminRole),
			r.User.CreatedAt.Format(time.RFC3339),
		}
		return sw.SetRow(fmt.Sprintf("A%d", rowNum), row)
	})
	if err != nil {
		respondError(c, err)
		return
	}

	if err := sw.Flush(); err != nil {
		log.Ctx(ctx).Error().Err(err).Msg("[AdminHandler] Flush failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create Excel file", "error_type": errorTypeInternal})
		return
	}

	filename := fmt.Sprintf("users_%s.xlsx", time.Now().UTC().Format("20060102_150405"))
	c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=\"%s\"", filename))
	c.Status(http.StatusOK)
	if err := f.Write(c.Writer); err != nil {
		log.Ctx(ctx).Error().Err(err).Msg("[AdminHandler] Failed to write Excel response")
	}
}

// sanitizeForExcel экранирует данные для защиты от formula injection в Excel
func sanitizeForExcel(s string) string {
	if len(s) == 0 {
		return s
	}
	// Символы, начинающие формулу в Excel/LibreOffice: = + - @ \t \r
	if s[0] == '=' || s[0] == '+' || s[0] == '-' || s[0] == '@' || s[0] == '\t' || s[0] == '\r' {
		return "'" + s
	}
	return s
}
