package licenses

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/ollyhq/olly-backend/pkg/db/models"
	"github.com/ollyhq/olly-backend/pkg/enums"
	pkgerrors "github.com/ollyhq/olly-backend/pkg/errors"
	"github.com/ollyhq/olly-backend/pkg/security"
)

const maxTeamSeats = 50

// ConvertToTeamInput promotes a main key to a team plan and carves seats.
type ConvertToTeamInput struct {
	Key              string
	OrganizationName string
	Seats            int
	Tier             int
}

// TeamConversionResult reports the organization and seats created.
type TeamConversionResult struct {
	LicenseKey   *models.LicenseKey
	Organization *models.Organization
	SubLicenses  []models.SubLicense
}

// TeamReversalResult lists the standalone keys minted for former seats.
type TeamReversalResult struct {
	LicenseKey   *models.LicenseKey
	DetachedKeys []models.LicenseKey
	RemovedSeats int
}

// ConvertToTeam promotes a single-seat key into a team: the organization,
// the tier bump, and every seat commit together or not at all.
func (s *service) ConvertToTeam(ctx context.Context, input ConvertToTeamInput) (*TeamConversionResult, error) {
	key := strings.TrimSpace(input.Key)
	if key == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "license key is required")
	}
	if input.Seats <= 0 || input.Seats > maxTeamSeats {
		return nil, pkgerrors.New(pkgerrors.CodeValidation,
			fmt.Sprintf("seats must be between 1 and %d", maxTeamSeats))
	}

	row, err := s.findKey(ctx, key)
	if err != nil {
		return nil, err
	}
	if row.ConvertedToTeam {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "license key is already a team key")
	}
	if !row.IsActive {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "license key is not active")
	}

	orgName := strings.TrimSpace(input.OrganizationName)
	if orgName == "" {
		orgName = "Team " + row.Key
	}

	result := &TeamConversionResult{LicenseKey: row}
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		org := &models.Organization{
			Name:             orgName,
			MainLicenseKeyID: &row.ID,
		}
		org.ID = uuid.New()
		if createErr := repo.CreateOrganization(ctx, org); createErr != nil {
			return createErr
		}
		result.Organization = org

		row.ConvertedToTeam = true
		row.OrganizationID = &org.ID
		if input.Tier > 0 {
			row.Tier = input.Tier
		}
		if updateErr := repo.UpdateKey(ctx, row); updateErr != nil {
			return updateErr
		}

		for i := 0; i < input.Seats; i++ {
			seatKey, genErr := security.GenerateLicenseKey()
			if genErr != nil {
				return genErr
			}
			seat := models.SubLicense{
				Key:              seatKey,
				Status:           enums.SubLicenseStatusActive,
				MainLicenseKeyID: row.ID,
				ConvertedToTeam:  true,
			}
			seat.ID = uuid.New()
			if createErr := repo.CreateSubLicense(ctx, &seat); createErr != nil {
				return createErr
			}
			result.SubLicenses = append(result.SubLicenses, seat)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if s.logg != nil {
		s.logg.Info(s.logg.WithLicenseKey(ctx, row.Key), "license key converted to team")
	}
	return result, nil
}

// RevertTeamConversion undoes a team plan. Each seat carved by the
// conversion becomes its own standalone main key carrying its status and
// assigned user, and its seat row is removed. Seats created outside the
// conversion are left alone, and the organization detaches only once no
// converted seats remain. The whole reversal runs in one transaction.
func (s *service) RevertTeamConversion(ctx context.Context, key string) (*TeamReversalResult, error) {
	row, err := s.findKey(ctx, key)
	if err != nil {
		return nil, err
	}
	if !row.ConvertedToTeam {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "license key is not a team key")
	}

	result := &TeamReversalResult{LicenseKey: row}
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		seats, listErr := repo.ListSubLicensesByMainKey(ctx, row.ID)
		if listErr != nil {
			return listErr
		}

		for _, seat := range seats {
			if !seat.ConvertedToTeam {
				continue
			}
			standalone := models.LicenseKey{
				Key:      seat.Key,
				IsActive: seat.Status == enums.SubLicenseStatusActive,
				Tier:     1,
				Vendor:   enums.VendorLocal,
			}
			standalone.ID = uuid.New()
			if createErr := repo.CreateKey(ctx, &standalone); createErr != nil {
				return createErr
			}
			if seat.AssignedUserID != nil {
				if upsertErr := repo.UpsertUserLicenseKey(ctx, *seat.AssignedUserID, standalone.ID); upsertErr != nil {
					return upsertErr
				}
			}
			if deleteErr := repo.DeleteSubLicense(ctx, seat.ID); deleteErr != nil {
				return deleteErr
			}
			result.DetachedKeys = append(result.DetachedKeys, standalone)
		}
		result.RemovedSeats = len(result.DetachedKeys)

		remaining, listErr := repo.ListSubLicensesByMainKey(ctx, row.ID)
		if listErr != nil {
			return listErr
		}
		convertedLeft := 0
		for _, seat := range remaining {
			if seat.ConvertedToTeam {
				convertedLeft++
			}
		}

		if convertedLeft == 0 && row.OrganizationID != nil {
			org, findErr := repo.FindOrganization(ctx, *row.OrganizationID)
			if findErr != nil && !errors.Is(findErr, gorm.ErrRecordNotFound) {
				return findErr
			}
			if findErr == nil {
				org.MainLicenseKeyID = nil
				if updateErr := repo.UpdateOrganization(ctx, org); updateErr != nil {
					return updateErr
				}
			}
		}

		row.ConvertedToTeam = false
		row.OrganizationID = nil
		return repo.UpdateKey(ctx, row)
	})
	if err != nil {
		return nil, err
	}

	if s.logg != nil {
		s.logg.Info(s.logg.WithLicenseKey(ctx, row.Key), "team conversion reversed")
	}
	return result, nil
}
