package client

import "net/http"

// Operation names a call the client can make.
type Operation string

const (
	OpRegister                Operation = "register"
	OpVerifyEmail             Operation = "verify_email"
	OpLogin                   Operation = "login"
	OpLogout                  Operation = "logout"
	OpRefreshToken            Operation = "refresh_token"
	OpUserDetails             Operation = "user_details"
	OpUpdateUser              Operation = "update_user"
	OpForgotPassword          Operation = "forgot_password"
	OpVerifyForgotPasswordOTP Operation = "verify_forgot_password_otp"
	OpResetPassword           Operation = "reset_password"
)

// Endpoint describes the route behind an operation and the request body
// fields that must be non-empty.
type Endpoint struct {
	Path     string
	Method   string
	Required []string
}

// Endpoints maps every operation to its route.
var Endpoints = map[Operation]Endpoint{
	OpRegister:                {Path: "/api/user/register", Method: http.MethodPost, Required: []string{"name", "email", "password"}},
	OpVerifyEmail:             {Path: "/api/user/verify-email", Method: http.MethodPost, Required: []string{"code"}},
	OpLogin:                   {Path: "/api/user/login", Method: http.MethodPost, Required: []string{"email", "password"}},
	OpLogout:                  {Path: "/api/user/logout", Method: http.MethodGet},
	OpRefreshToken:            {Path: "/api/user/refresh-token", Method: http.MethodPost},
	OpUserDetails:             {Path: "/api/user/user-details", Method: http.MethodGet},
	OpUpdateUser:              {Path: "/api/user/update-user", Method: http.MethodPut},
	OpForgotPassword:          {Path: "/api/user/forgot-password", Method: http.MethodPut, Required: []string{"email"}},
	OpVerifyForgotPasswordOTP: {Path: "/api/user/verify-forgot-password-otp", Method: http.MethodPut, Required: []string{"email", "otp"}},
	OpResetPassword:           {Path: "/api/user/reset-password", Method: http.MethodPut, Required: []string{"email", "newPassword", "confirmPassword"}},
}
