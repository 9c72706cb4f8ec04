package models

type UserType string

const (
	UserTypeRenter UserType = "renter"
	UserTypeSeller UserType = "seller"
	UserTypeAdmin  UserType = "admin"
)

// User is the directory's read model. Accounts are owned by the identity
// service.
type User struct {
	ID          string `json:"id" gorm:"type:uuid;primaryKey"`
	Name        string `json:"name"`
	Email       string `json:"email"`
	PhoneNumber string `json:"phoneNumber" gorm:"column:phone_number"`
	GovtID      string `json:"govtId" gorm:"column:govt_id"`
	UserType    string `json:"userType" gorm:"column:user_type"`
	FCMToken    string `json:"-" gorm:"column:fcm_token"`
}

func (User) TableName() string {
	return "users"
}
