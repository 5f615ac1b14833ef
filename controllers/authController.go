package controllers

import (
	"verein-backend/apperr"
	"verein-backend/database"
	"verein-backend/middlewares"
	"verein-backend/models"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

type RegisterInput struct {
	FirstName       string `json:"first_name" validate:"required,max=100"`
	LastName        string `json:"last_name" validate:"required,max=100"`
	Email           string `json:"email" validate:"required,email"`
	Password        string `json:"password" validate:"required,min=8"`
	PasswordConfirm string `json:"password_confirm" validate:"required"`
	ClubName        string `json:"club_name" validate:"required,min=3,max=100"`
}

// Register creates a platform user, the club with its own schema, and the
// OWNER membership inside it.
func Register(c *fiber.Ctx) error {
	var input RegisterInput
	if err := middlewares.BindAndValidate(c, &input); err != nil {
		return err
	}
	if input.Password != input.PasswordConfirm {
		return apperr.New(apperr.InvalidArgument, "passwords do not match")
	}

	var existing models.User
	res := database.DB.Where("email = ?", input.Email).Limit(1).Find(&existing)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected > 0 {
		return apperr.New(apperr.AlreadyExists, "email already exists")
	}

	schemaName, err := database.SchemaName(input.ClubName)
	if err != nil {
		return apperr.New(apperr.InvalidArgument, "club name cannot be used as a schema")
	}

	user := models.User{
		FirstName:  input.FirstName,
		LastName:   input.LastName,
		Email:      input.Email,
		SchemaName: schemaName,
	}
	user.SetPassword(input.Password)

	err = database.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&user).Error; err != nil {
			return err
		}
		if err := tx.Exec(`CREATE SCHEMA IF NOT EXISTS "` + schemaName + `"`).Error; err != nil {
			return err
		}
		club := models.Club{Name: input.ClubName, OwnerId: user.Id, SchemaName: schemaName}
		return tx.Create(&club).Error
	})
	if err != nil {
		return apperr.New(apperr.Internal, "registration failed")
	}

	if err := database.MigrateTenantSchema(schemaName); err != nil {
		return apperr.New(apperr.Internal, "could not migrate club schema")
	}

	clubDB, err := database.GetTenantDB(schemaName)
	if err != nil {
		return apperr.New(apperr.Internal, "club database unavailable")
	}
	membership := models.Membership{
		UserID:      user.Id,
		DisplayName: input.FirstName + " " + input.LastName,
		Role:        models.RoleOwner,
	}
	if err := clubDB.Create(&membership).Error; err != nil {
		return apperr.New(apperr.Internal, "could not create owner membership")
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"user":   user,
		"club":   input.ClubName,
		"schema": schemaName,
	})
}

type LoginInput struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

func Login(c *fiber.Ctx) error {
	var input LoginInput
	if err := middlewares.BindAndValidate(c, &input); err != nil {
		return err
	}

	var user models.User
	res := database.DB.Where("email = ?", input.Email).Limit(1).Find(&user)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 || user.ComparePassword(input.Password) != nil {
		return apperr.New(apperr.Unauthenticated, "invalid credentials")
	}

	token, err := middlewares.GenerateJWT(user.Id, user.SchemaName)
	if err != nil {
		return apperr.New(apperr.Internal, "could not sign token")
	}

	return c.JSON(fiber.Map{
		"token": token,
		"user":  user,
	})
}

// Logout is stateless with Bearer tokens; clients drop the token.
func Logout(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"message": "logged out"})
}
