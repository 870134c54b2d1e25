package controllers

import (
	"net/http"

	dbpkg "credanalyzer/db"
	"credanalyzer/models"
	"credanalyzer/tools"

	"github.com/gin-gonic/gin"
)

func CheckUserExists(c *gin.Context, email string) (bool, *models.User) {
	db := dbpkg.DBInstance(c)
	if db == nil {
		return false, nil
	}

	var user models.User
	if err := db.Where("email = ?", email).First(&user).Error; err != nil {
		return false, nil
	}
	return true, &user
}

func CreateUser(c *gin.Context) {
	db := dbpkg.DBInstance(c)
	user := models.User{}
	if err := c.Bind(&user); err != nil {
		RespondError(c, err.Error(), 400)
		return
	}

	missing := user.MissingFields()
	if missing != "" {
		RespondError(c, "Faltando campo "+missing, 400)
		return
	}

	if !tools.ValidateEmail(user.Email) {
		RespondError(c, "E-mail inválido!", 400)
		return
	}

	exists, _ := CheckUserExists(c, user.Email)
	if exists {
		RespondError(c, "Usuário já existe", 400)
		return
	}

	passwordEncode := tools.EncryptTextSHA512(user.Password)
	passwordEncode = user.Email + ":" + passwordEncode
	user.Password = tools.EncryptTextSHA512(passwordEncode)

	user.Admin = false
	user.Type = models.USER_TYPE_NORMAL
	user.Status = models.USER_STATUS_AVAILABLE

	tx := db.Begin()
	if err := tx.Create(&user).Error; err != nil {
		tx.Rollback()
		RespondError(c, err.Error(), 400)
		return
	}

	// Todo usuário nasce com um registro de créditos zerado e sem plano.
	record := models.Subscription{UserID: user.ID, Active: true, Version: 1}
	if err := tx.Create(&record).Error; err != nil {
		tx.Rollback()
		RespondError(c, err.Error(), 400)
		return
	}

	if err := tx.Commit().Error; err != nil {
		tx.Rollback()
		RespondError(c, err.Error(), 400)
		return
	}

	user.Password = ""
	RespondSuccess(c, user)
}

// GetUsers lista usuários (rota admin).
func GetUsers(c *gin.Context) {
	db := dbpkg.DBInstance(c)
	var users []models.User
	if err := db.Order("id asc").Find(&users).Error; err != nil {
		RespondError(c, err.Error(), http.StatusInternalServerError)
		return
	}
	for i := range users {
		users[i].Password = ""
	}
	RespondSuccess(c, users)
}
