package models

import (
	"credanalyzer/tools"
	"strings"
	"time"
)

/************************************************
/**** MARK: USER TYPES ****/
/************************************************/
const USER_TYPE_NORMAL = 0
const USER_TYPE_ADMIN = 1

/************************************************
/**** MARK: USER STATUS ****/
/************************************************/
const USER_STATUS_AVAILABLE = 0
const USER_STATUS_PENDING = 1
const USER_STATUS_BLOCKED = 2

// User representa um usuario no sistema
type User struct {
	ID               int64      `gorm:"primary_key;AUTO_INCREMENT" json:"id"`
	Name             string     `gorm:"not null" json:"name" form:"name"`
	Email            string     `gorm:"not null;unique" json:"email" form:"email"`
	Password         string     `gorm:"not null" json:"password" form:"password"`
	CPF              string     `gorm:"default:''" json:"cpf" form:"cpf"`
	CNPJ             string     `json:"cnpj" form:"cnpj"`
	CompanyName      string     `gorm:"column:company_name" json:"company_name" form:"company_name"`
	Phone1           string     `gorm:"column:phone1" json:"phone1" form:"phone1"`
	Status           int        `gorm:"default:0" json:"status" form:"status"`
	Type             int        `gorm:"not null; default:0" json:"type" form:"type"`
	Admin            bool       `gorm:"not null; default: false" json:"admin" form:"admin"`
	StripeCustomerID string     `gorm:"column:stripe_customer_id;default:''" json:"stripe_customer_id"`
	CreatedAt        *time.Time `json:"created_at" form:"created_at"`
	UpdatedAt        *time.Time `json:"updated_at" form:"updated_at"`
}

func (user User) MissingFields() string {
	if user.Name == "" {
		return "name"
	} else if user.Email == "" {
		return "email"
	} else if user.Password == "" {
		return "password"
	} else if tools.CheckPassword(user.Password) != "" {
		return tools.CheckPassword(user.Password)
	}
	return ""
}

func IsCpfValid(cpf string) bool {
	if cpf == "" {
		return false
	} else if strings.Count(cpf, "") != 12 {
		return false
	}
	return true
}

func IsCnpjValid(cnpj string) bool {
	if cnpj == "" {
		return false
	} else if strings.Count(cnpj, "") != 15 {
		return false
	}
	return true
}
