package domain

import "regexp"

// EmergencyContact 紧急联系人领域模型（每个用户最多一个）
// WhatsApp 是电话号码形态的字符串，格式只在边界校验，核心不关心。
type EmergencyContact struct {
	ID       int64  `json:"id" db:"id"`
	UserID   int64  `json:"userId" db:"user_id"`
	Name     string `json:"name" db:"name"`
	WhatsApp string `json:"whatsapp" db:"whatsapp"`
}

// phone-number-shaped: optional +, 8-15 digits, separators tolerated,
// may open with an area-code parenthesis
var phoneShape = regexp.MustCompile(`^\+?[0-9(][0-9 ().-]{6,18}[0-9]$`)

// ValidPhone 边界校验：号码形态是否合理
func ValidPhone(s string) bool {
	return phoneShape.MatchString(s)
}
