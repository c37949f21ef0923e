package authkit

import (
	"fmt"
	"math"
	"time"

	"github.com/MrEthical07/authkit/validate"
)

// Locale selects the language of user-facing messages.
type Locale string

const (
	LocaleEN Locale = "en"
	LocaleVI Locale = "vi"
)

// Success message keys. They share the translation table with error codes.
const (
	MsgLoginSuccess    ErrorCode = "login-success"
	MsgSignupSuccess   ErrorCode = "signup-success"
	MsgLogoutSuccess   ErrorCode = "logout-success"
	MsgResetEmailSent  ErrorCode = "reset-email-sent"
	MsgPasswordUpdated ErrorCode = "password-updated"
	MsgProfileUpdated  ErrorCode = "profile-updated"
)

type message struct {
	en string
	vi string
}

func (m message) in(locale Locale) string {
	if locale == LocaleVI {
		return m.vi
	}
	return m.en
}

var genericMessage = message{
	en: "Something went wrong. Please try again.",
	vi: "Đã có lỗi xảy ra. Vui lòng thử lại.",
}

var rateLimitMessage = message{
	en: "Too many attempts. Please try again in %d seconds.",
	vi: "Quá nhiều lần thử. Vui lòng thử lại sau %d giây.",
}

var messages = map[ErrorCode]message{
	CodeMissingFields: {
		en: "Please fill in all required fields.",
		vi: "Vui lòng điền đầy đủ các trường bắt buộc.",
	},
	CodeRateLimited: {
		en: "Too many attempts. Please try again later.",
		vi: "Quá nhiều lần thử. Vui lòng thử lại sau.",
	},
	CodeInvalidEmail: {
		en: "The email address is not valid.",
		vi: "Địa chỉ email không hợp lệ.",
	},
	CodeWeakPassword: {
		en: "The password is too short.",
		vi: "Mật khẩu quá ngắn.",
	},
	CodeUsernameInvalid: {
		en: "The username is not valid.",
		vi: "Tên người dùng không hợp lệ.",
	},
	CodeUserNotFound: {
		en: "No account was found for this user.",
		vi: "Không tìm thấy tài khoản của người dùng này.",
	},
	CodeUserDisabled: {
		en: "This account has been disabled.",
		vi: "Tài khoản này đã bị vô hiệu hóa.",
	},
	CodeDatabase: {
		en: "Could not save your data. Please try again.",
		vi: "Không thể lưu dữ liệu. Vui lòng thử lại.",
	},
	CodeNotAuthenticated: {
		en: "Please sign in to continue.",
		vi: "Vui lòng đăng nhập để tiếp tục.",
	},
	CodeUnexpected: genericMessage,

	ErrorCode(validate.ReasonEmailRequired): {
		en: "Please enter your email address.",
		vi: "Vui lòng nhập địa chỉ email.",
	},
	ErrorCode(validate.ReasonEmailTooLong): {
		en: "The email address is too long.",
		vi: "Địa chỉ email quá dài.",
	},
	ErrorCode(validate.ReasonEmailDisposable): {
		en: "Disposable email addresses are not allowed.",
		vi: "Không chấp nhận địa chỉ email tạm thời.",
	},
	ErrorCode(validate.ReasonUsernameRequired): {
		en: "Please choose a username.",
		vi: "Vui lòng chọn tên người dùng.",
	},
	ErrorCode(validate.ReasonUsernameLength): {
		en: "Username must be between 3 and 30 characters.",
		vi: "Tên người dùng phải có từ 3 đến 30 ký tự.",
	},
	ErrorCode(validate.ReasonUsernameFormat): {
		en: "Username may only contain lowercase letters, digits, dots and underscores.",
		vi: "Tên người dùng chỉ được chứa chữ thường, chữ số, dấu chấm và dấu gạch dưới.",
	},
	ErrorCode(validate.ReasonUsernameTaken): {
		en: "This username is already taken.",
		vi: "Tên người dùng này đã được sử dụng.",
	},
	ErrorCode(validate.ReasonUsernameCheck): {
		en: "Could not check the username. Please try again.",
		vi: "Không thể kiểm tra tên người dùng. Vui lòng thử lại.",
	},
	ErrorCode(validate.ReasonPasswordRequired): {
		en: "Please enter a password.",
		vi: "Vui lòng nhập mật khẩu.",
	},
	ErrorCode(validate.ReasonPasswordWeak): {
		en: "Password needs an uppercase letter, a lowercase letter and a digit.",
		vi: "Mật khẩu cần có chữ hoa, chữ thường và chữ số.",
	},

	CodeInvalidCredentials: {
		en: "Incorrect email or password.",
		vi: "Email hoặc mật khẩu không đúng.",
	},
	CodeEmailNotConfirmed: {
		en: "Please confirm your email address before signing in.",
		vi: "Vui lòng xác nhận địa chỉ email trước khi đăng nhập.",
	},
	CodeUserExists: {
		en: "An account with this email already exists.",
		vi: "Email này đã được đăng ký.",
	},
	CodeEmailExists: {
		en: "An account with this email already exists.",
		vi: "Email này đã được đăng ký.",
	},
	CodeServiceWeakPass: {
		en: "The password is too weak.",
		vi: "Mật khẩu quá yếu.",
	},
	CodeEmailSendLimit: {
		en: "Too many emails sent. Please wait before trying again.",
		vi: "Đã gửi quá nhiều email. Vui lòng chờ trước khi thử lại.",
	},
	CodeRequestLimit: {
		en: "Too many requests. Please wait before trying again.",
		vi: "Quá nhiều yêu cầu. Vui lòng chờ trước khi thử lại.",
	},
	CodeSamePassword: {
		en: "The new password must differ from the current one.",
		vi: "Mật khẩu mới phải khác mật khẩu hiện tại.",
	},
	CodeSessionNotFound: {
		en: "Your session has ended. Please sign in again.",
		vi: "Phiên đăng nhập đã kết thúc. Vui lòng đăng nhập lại.",
	},
	CodeSessionExpired: {
		en: "Your session has expired. Please sign in again.",
		vi: "Phiên đăng nhập đã hết hạn. Vui lòng đăng nhập lại.",
	},
	CodeServiceUserMissing: {
		en: "No account was found for this user.",
		vi: "Không tìm thấy tài khoản của người dùng này.",
	},
	CodeUsernameTaken: {
		en: "This username is already taken.",
		vi: "Tên người dùng này đã được sử dụng.",
	},
	CodeNetwork: {
		en: "Network error. Check your connection and try again.",
		vi: "Lỗi mạng. Vui lòng kiểm tra kết nối và thử lại.",
	},
	CodeForbidden: {
		en: "You do not have permission to do this.",
		vi: "Bạn không có quyền thực hiện thao tác này.",
	},

	MsgLoginSuccess: {
		en: "Signed in successfully.",
		vi: "Đăng nhập thành công.",
	},
	MsgSignupSuccess: {
		en: "Account created. You can now sign in.",
		vi: "Tạo tài khoản thành công. Bạn có thể đăng nhập.",
	},
	MsgLogoutSuccess: {
		en: "Signed out.",
		vi: "Đã đăng xuất.",
	},
	MsgResetEmailSent: {
		en: "Password reset email sent.",
		vi: "Đã gửi email đặt lại mật khẩu.",
	},
	MsgPasswordUpdated: {
		en: "Password updated.",
		vi: "Đã cập nhật mật khẩu.",
	},
	MsgProfileUpdated: {
		en: "Profile updated.",
		vi: "Đã cập nhật hồ sơ.",
	},
}

// Translate returns the localized message for code. Unknown codes get the
// generic message; an unknown locale falls back to English.
func Translate(code ErrorCode, locale Locale) string {
	m, ok := messages[code]
	if !ok {
		m = genericMessage
	}
	return m.in(locale)
}

// Known reports whether code has its own translation.
func Known(code ErrorCode) bool {
	_, ok := messages[code]
	return ok
}

// RateLimitMessage formats the wait as whole seconds, rounded up.
func RateLimitMessage(wait time.Duration, locale Locale) string {
	secs := int(math.Ceil(wait.Seconds()))
	if secs < 1 {
		secs = 1
	}
	return fmt.Sprintf(rateLimitMessage.in(locale), secs)
}

// Translator binds a locale for repeated lookups.
type Translator struct {
	Locale Locale
}

// Message translates code in t's locale.
func (t Translator) Message(code ErrorCode) string {
	return Translate(code, t.Locale)
}
