package providers

import (
	"github.com/samber/do/v2"

	"github.com/goalmateapp/goalmate-server/internal/auth"
	"github.com/goalmateapp/goalmate-server/internal/logger"
	"github.com/goalmateapp/goalmate-server/internal/service"
	"github.com/goalmateapp/goalmate-server/internal/validation"
)

// ProvideAuthService provides the authentication service.
func ProvideAuthService(i do.Injector) (*service.AuthService, error) {
	storeHandle := do.MustInvoke[*StoreHandle](i)
	tokenService := do.MustInvoke[*auth.TokenService](i)
	validator := do.MustInvoke[*validation.Validator](i)
	log := do.MustInvoke[*logger.Logger](i)

	return service.NewAuthService(storeHandle.Store, tokenService, validator, log.Logger), nil
}

// ProvideGoalService provides the goal lifecycle service.
func ProvideGoalService(i do.Injector) (*service.GoalService, error) {
	storeHandle := do.MustInvoke[*StoreHandle](i)
	validator := do.MustInvoke[*validation.Validator](i)
	log := do.MustInvoke[*logger.Logger](i)

	return service.NewGoalService(storeHandle.Store, validator, log.Logger), nil
}

// ProvideSharingService provides the goal sharing service.
func ProvideSharingService(i do.Injector) (*service.SharingService, error) {
	storeHandle := do.MustInvoke[*StoreHandle](i)
	log := do.MustInvoke[*logger.Logger](i)

	return service.NewSharingService(storeHandle.Store, log.Logger), nil
}

// ProvideAttendanceService provides the attendance service.
func ProvideAttendanceService(i do.Injector) (*service.AttendanceService, error) {
	storeHandle := do.MustInvoke[*StoreHandle](i)
	goalService := do.MustInvoke[*service.GoalService](i)
	log := do.MustInvoke[*logger.Logger](i)

	return service.NewAttendanceService(storeHandle.Store, goalService, service.IdentityResolver{}, log.Logger), nil
}
