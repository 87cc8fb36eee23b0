package validation

import "strings"

// LoginInput is the body of POST /auth/login.
type LoginInput struct {
	Email      string `json:"email"`
	Password   string `json:"password"`
	RememberMe bool   `json:"rememberMe"`
}

// ValidateLogin reports the first problem only; the login form shows a
// single message.
func ValidateLogin(in LoginInput) string {
	switch {
	case strings.TrimSpace(in.Email) == "" || in.Password == "":
		return "Email and password are required"
	case !IsEmail(in.Email):
		return "Please provide a valid email address"
	case len(in.Password) < 6:
		return "Password must be at least 6 characters long"
	}
	return ""
}

// AdminInput is the body of POST /auth/admin.
type AdminInput struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

func ValidateAdmin(in AdminInput) Errors {
	var errs Errors
	errs.check(minLen(in.Username, 3), "Username is required and must be at least 3 characters")
	if strings.TrimSpace(in.Email) == "" {
		errs = append(errs, "Valid email is required")
	} else {
		errs.check(IsEmail(in.Email), "Please provide a valid email address")
	}
	errs.check(len(in.Password) >= 8, "Password is required and must be at least 8 characters")
	return errs
}

// ContactInput is the body of POST /contact.
type ContactInput struct {
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Email     string `json:"email"`
	Phone     string `json:"phone"`
	Message   string `json:"message"`
}

func ValidateContact(in ContactInput) Errors {
	var errs Errors
	errs.check(minLen(in.FirstName, 1), "First name is required")
	errs.check(minLen(in.LastName, 1), "Last name is required")
	errs.check(IsEmail(in.Email), "Valid email is required")
	errs.check(minLen(in.Message, 10), "Message is required and must be at least 10 characters")
	return errs
}
