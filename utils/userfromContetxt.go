package utils

import (
	"net/http"

	"bloodbank/globals"
)

func GetUserIDFromRequest(r *http.Request) string {
	id, _ := r.Context().Value(globals.UserIDKey).(string)
	return id
}

func GetRoleFromRequest(r *http.Request) string {
	role, _ := r.Context().Value(globals.RoleKey).(string)
	return role
}

func GetFacilityTypeFromRequest(r *http.Request) string {
	ft, _ := r.Context().Value(globals.FacilityTypeKey).(string)
	return ft
}
