package models

// UserRecord is the user document returned by the backend on sign-in.
// Older backend builds send the id as userId.
type UserRecord struct {
	ID       string `json:"_id"`
	UserID   string `json:"userId,omitempty"`
	UserName string `json:"userName"`
	Email    string `json:"email"`
	Avatar   string `json:"avatar"`
	Phone    string `json:"phone"`
	Address  string `json:"address"`
}

// Session is the reduced projection of UserRecord kept on the client and
// persisted to durable storage.
type Session struct {
	ID       string `json:"_id"`
	UserName string `json:"userName"`
	Email    string `json:"email"`
	Avatar   string `json:"avatar"`
	Phone    string `json:"phone"`
	Address  string `json:"address"`
}

// ToSession projects r into a Session.
func (r UserRecord) ToSession() Session {
	id := r.ID
	if id == "" {
		id = r.UserID
	}
	return Session{
		ID:       id,
		UserName: r.UserName,
		Email:    r.Email,
		Avatar:   r.Avatar,
		Phone:    r.Phone,
		Address:  r.Address,
	}
}
