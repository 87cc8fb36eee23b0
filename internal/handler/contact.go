package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/balloon-tour-booking/internal/mail"
	"github.com/iliyamo/balloon-tour-booking/internal/validation"
)

// ContactHandler forwards the public contact form to the operator's mailbox.
type ContactHandler struct {
	Mailer  mail.Mailer
	Mailbox string
	T       Timeouts

	now func() time.Time
}

func NewContactHandler(m mail.Mailer, mailbox string, t Timeouts) *ContactHandler {
	if m == nil {
		panic("nil mailer passed to NewContactHandler")
	}
	return &ContactHandler{Mailer: m, Mailbox: mailbox, T: t.withDefaults(), now: utcNow}
}

// Send handles POST /api/contact.
func (h *ContactHandler) Send(c echo.Context) error {
	var in validation.ContactInput
	if err := c.Bind(&in); err != nil {
		return message(c, http.StatusBadRequest, "Invalid request body")
	}
	if errs := validation.ValidateContact(in); !errs.OK() {
		return validationFailed(c, errs)
	}
	msg, err := mail.ContactMessage(mail.Contact{
		FirstName: in.FirstName,
		LastName:  in.LastName,
		Email:     in.Email,
		Phone:     in.Phone,
		Message:   in.Message,
	}, h.Mailbox, h.now())
	if err != nil {
		return serverError(c, "Failed to send email", err)
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), h.T.Upload)
	defer cancel()
	if err := h.Mailer.Send(ctx, msg); err != nil {
		return serverError(c, "Failed to send email", err)
	}
	return message(c, http.StatusOK, "Email sent successfully")
}
