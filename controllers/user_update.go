package controllers

import (
	"net/http"

	dbpkg "credanalyzer/db"
	"credanalyzer/models"
	"credanalyzer/tools"

	"github.com/gin-gonic/gin"
)

type UserUpdateRequest struct {
	Name        string `json:"name" form:"name"`
	CPF         string `json:"cpf" form:"cpf"`
	CNPJ        string `json:"cnpj" form:"cnpj"`
	CompanyName string `json:"company_name" form:"company_name"`
	Phone1      string `json:"phone1" form:"phone1"`
	Password    string `json:"password" form:"password"`
}

// UpdateUser atualiza o perfil do usuário logado. Email não muda por aqui.
func UpdateUser(c *gin.Context) {
	user, ok := GetUserLogged(c)
	if !ok {
		RespondError(c, "unauthorized", http.StatusUnauthorized)
		return
	}

	var req UserUpdateRequest
	if err := c.Bind(&req); err != nil {
		RespondError(c, err.Error(), http.StatusBadRequest)
		return
	}

	if req.CPF != "" && !models.IsCpfValid(req.CPF) {
		RespondError(c, "CPF inválido", http.StatusBadRequest)
		return
	}
	if req.CNPJ != "" && !models.IsCnpjValid(req.CNPJ) {
		RespondError(c, "CNPJ inválido", http.StatusBadRequest)
		return
	}

	updates := map[string]interface{}{}
	if req.Name != "" {
		updates["name"] = req.Name
	}
	if req.CPF != "" {
		updates["cpf"] = req.CPF
	}
	if req.CNPJ != "" {
		updates["cnpj"] = req.CNPJ
	}
	if req.CompanyName != "" {
		updates["company_name"] = req.CompanyName
	}
	if req.Phone1 != "" {
		updates["phone1"] = req.Phone1
	}
	if req.Password != "" {
		if msg := tools.CheckPassword(req.Password); msg != "" {
			RespondError(c, msg, http.StatusBadRequest)
			return
		}
		encoded := tools.EncryptTextSHA512(req.Password)
		encoded = user.Email + ":" + encoded
		updates["password"] = tools.EncryptTextSHA512(encoded)
	}
	if len(updates) == 0 {
		RespondError(c, "nada para atualizar", http.StatusBadRequest)
		return
	}

	db := dbpkg.DBInstance(c)
	if err := db.Model(&models.User{}).Where("id = ?", user.ID).Updates(updates).Error; err != nil {
		RespondError(c, err.Error(), http.StatusInternalServerError)
		return
	}

	var updated models.User
	if err := db.First(&updated, user.ID).Error; err != nil {
		RespondError(c, err.Error(), http.StatusInternalServerError)
		return
	}
	updated.Password = ""
	RespondSuccess(c, updated)
}
