package domain

// User 用户领域模型（对应 users 表）
// Password 对核心逻辑是不透明凭证，任何 API 响应都必须剥离。
type User struct {
	ID        int64  `json:"id" db:"id"`
	Email     string `json:"email" db:"email"`         // unique, case-insensitive
	Password  string `json:"password" db:"password"`   // opaque credential
	FullName  string `json:"fullName" db:"full_name"`  // NOT NULL
	Phone     string `json:"phone" db:"phone"`         // nullable, profile only
	BirthDate string `json:"birthDate" db:"birth_date"` // nullable, profile only
}

// PublicUser 去掉密码后的用户视图（所有 HTTP 响应使用）
type PublicUser struct {
	ID        int64  `json:"id"`
	Email     string `json:"email"`
	FullName  string `json:"fullName"`
	Phone     string `json:"phone"`
	BirthDate string `json:"birthDate"`
}

// Public 返回剥离了密码的用户视图
func (u User) Public() PublicUser {
	return PublicUser{
		ID:        u.ID,
		Email:     u.Email,
		FullName:  u.FullName,
		Phone:     u.Phone,
		BirthDate: u.BirthDate,
	}
}

// DisplayName 用于紧急消息模板的展示名
func (u User) DisplayName() string {
	if u.FullName != "" {
		return u.FullName
	}
	return u.Email
}
