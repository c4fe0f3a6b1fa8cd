package placements

import (
	"fmt"

	"github.com/doogybook/backend/internal/models"
)

// PlaceSummary describes what placing dog with contact will do.
func PlaceSummary(dog *models.Dog, contact *models.FosterContact) string {
	s := fmt.Sprintf("%s will be placed in foster care with %s", dog.Name, contact.FullName)
	if contact.City != "" {
		s += " (" + contact.City + ")"
	}
	return s + fmt.Sprintf(". %s will then host %d of %d dogs.",
		contact.FullName, contact.CurrentDogsCount+1, contact.MaxDogs)
}

// ReturnSummary describes what returning dog from foster care will do. contact may be nil
// when the dog's foster contact no longer exists.
func ReturnSummary(dog *models.Dog, contact *models.FosterContact) string {
	if contact == nil {
		return fmt.Sprintf("%s will leave foster care and return to the organization.", dog.Name)
	}
	return fmt.Sprintf("%s will leave %s's care and return to the organization. The placement will be closed as returned.",
		dog.Name, contact.FullName)
}

// TransferSummary describes what transferring dog to adopter will do. This cannot be undone.
func TransferSummary(dog *models.Dog, adopter models.AdopterAccount) string {
	who := adopter.FullName
	if who == "" {
		who = adopter.Email
	} else {
		who += " <" + adopter.Email + ">"
	}
	s := fmt.Sprintf("Ownership of %s will be transferred to %s.", dog.Name, who)
	if dog.InFoster() {
		s += " The current foster placement will be closed as adopted."
	}
	return s + fmt.Sprintf(" %s will leave the organization's roster. This cannot be undone.", dog.Name)
}
