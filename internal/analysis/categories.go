package analysis

// System category ids. They are seeded by the initial migration and are the
// only ids the analysis pipeline ever assigns.
const (
	CategoryPrimary    = 1
	CategorySocial     = 2
	CategoryPromotions = 3
	CategoryWork       = 4
	CategorySpam       = 5
)

// SystemCategory describes one seeded category.
type SystemCategory struct {
	ID    int
	Name  string
	Color string
	Icon  string
}

var SystemCategories = []SystemCategory{
	{CategoryPrimary, "Primary", "#4285F4", "fa-inbox"},
	{CategorySocial, "Social", "#34A853", "fa-users"},
	{CategoryPromotions, "Promotions", "#FBBC05", "fa-tag"},
	{CategoryWork, "Work", "#EA4335", "fa-briefcase"},
	{CategorySpam, "Spam", "#9E9E9E", "fa-ban"},
}

// IsSystemCategory reports whether id is one of the five fixed ids.
func IsSystemCategory(id int) bool {
	return id >= CategoryPrimary && id <= CategorySpam
}

// CategoryName maps a system id to its name. Unknown ids read as Primary.
func CategoryName(id int) string {
	if !IsSystemCategory(id) {
		id = CategoryPrimary
	}
	return SystemCategories[id-1].Name
}
