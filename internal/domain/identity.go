package domain

type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// Identity - проверенный пользователь запроса, полученный от провайдера идентификации.
type Identity struct {
	UserID int64
	Role   Role
}

// CanManageCatalog сообщает, может ли пользователь изменять каталог.
func (i Identity) CanManageCatalog() bool {
	return i.Role == RoleAdmin
}
