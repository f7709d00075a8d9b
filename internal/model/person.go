package model

import "strings"

// Person 用户，对应 tbl_users，由账号服务维护，本服务只读
type Person struct {
	UserID    int64  `gorm:"column:user_id;primaryKey" json:"user_id"`
	FirstName string `gorm:"column:first_name"         json:"first_name"`
	LastName  string `gorm:"column:last_name"          json:"last_name"`
}

// TableName 指定表名
func (Person) TableName() string { return "tbl_users" }

// DisplayName "名 姓"
func (p *Person) DisplayName() string {
	if p == nil {
		return ""
	}
	return strings.TrimSpace(strings.TrimSpace(p.FirstName) + " " + strings.TrimSpace(p.LastName))
}
