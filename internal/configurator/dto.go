// AngelaMos | 2026
// dto.go

package configurator

type CreateConfiguratorRequest struct {
	Name        string  `json:"name"        validate:"required,min=1,max=200"`
	Description string  `json:"description" validate:"max=2000"`
	Currency    string  `json:"currency"    validate:"omitempty,len=3,alpha"`
	BasePrice   int64   `json:"base_price"  validate:"min=0"`
	ThemeID     *string `json:"theme_id"    validate:"omitempty,uuid"`
}

type UpdateConfiguratorRequest struct {
	Name        *string `json:"name,omitempty"        validate:"omitempty,min=1,max=200"`
	Description *string `json:"description,omitempty" validate:"omitempty,max=2000"`
	Currency    *string `json:"currency,omitempty"    validate:"omitempty,len=3,alpha"`
	BasePrice   *int64  `json:"base_price,omitempty"  validate:"omitempty,min=0"`
	Published   *bool   `json:"published,omitempty"`
	ThemeID     *string `json:"theme_id,omitempty"    validate:"omitempty,uuid"`
}

type CategoryRequest struct {
	Name        string `json:"name"        validate:"required,min=1,max=200"`
	Description string `json:"description" validate:"max=2000"`
	SortOrder   int    `json:"sort_order"  validate:"min=0"`
	Required    bool   `json:"required"`
}

type OptionRequest struct {
	Name            string   `json:"name"             validate:"required,min=1,max=200"`
	Description     string   `json:"description"      validate:"max=2000"`
	Price           int64    `json:"price"            validate:"min=0"`
	SortOrder       int      `json:"sort_order"       validate:"min=0"`
	ImageURL        *string  `json:"image_url"        validate:"omitempty,url,max=2048"`
	DependencyIDs   []string `json:"dependency_ids"   validate:"max=100,dive,uuid"`
	IncompatibleIDs []string `json:"incompatible_ids" validate:"max=100,dive,uuid"`
}

type ThemeRequest struct {
	ConfiguratorID *string `json:"configurator_id" validate:"omitempty,uuid"`
	Name           string  `json:"name"            validate:"required,min=1,max=100"`
	PrimaryColor   string  `json:"primary_color"   validate:"omitempty,hexcolor"`
	AccentColor    string  `json:"accent_color"    validate:"omitempty,hexcolor"`
	FontFamily     string  `json:"font_family"     validate:"max=100"`
}

type SubmitQuoteRequest struct {
	CustomerName      string   `json:"customer_name"       validate:"required,min=1,max=200"`
	CustomerEmail     string   `json:"customer_email"      validate:"required,email,max=254"`
	Notes             string   `json:"notes"               validate:"max=4000"`
	SelectedOptionIDs []string `json:"selected_option_ids" validate:"max=500,unique,dive,required"`
}

type UpdateQuoteStatusRequest struct {
	Status string `json:"status" validate:"required,oneof=new sent accepted rejected"`
}
