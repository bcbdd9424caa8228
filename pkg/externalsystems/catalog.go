package externalsystems

import (
	"sort"
	"strings"
	"sync"
)

// Product is one entry in the product catalog
type Product struct {
	ProductID   string   `json:"product_id"`
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Price       float64  `json:"price"`
	Category    string   `json:"category"`
	InStock     bool     `json:"in_stock"`
	Features    []string `json:"features"`
}

// PolicyDocument is one company policy or service document
type PolicyDocument struct {
	DocID    string   `json:"doc_id"`
	Title    string   `json:"title"`
	Content  string   `json:"content"`
	Category string   `json:"category"`
	Keywords []string `json:"keywords"`
}

// CatalogAPI serves product and policy information retrieval
type CatalogAPI struct {
	mu       sync.RWMutex
	products map[string]Product
	policies map[string]PolicyDocument
}

// NewCatalogAPI creates a CatalogAPI seeded with the mock catalog
func NewCatalogAPI() *CatalogAPI {
	return &CatalogAPI{
		products: mockProducts(),
		policies: mockPolicies(),
	}
}

func mockProducts() map[string]Product {
	return map[string]Product{
		"PROD-001": {
			ProductID:   "PROD-001",
			Name:        "Merino Wool Performance Jacket",
			Description: "Italian merino wool jacket with tailored fit and breathable fabric. Features premium YKK zippers and water-resistant finish. Perfect for urban professionals and outdoor enthusiasts.",
			Price:       895.00,
			Category:    "Outerwear",
			InStock:     true,
			Features: []string{
				"100% Italian Merino Wool",
				"Water-resistant DWR coating",
				"YKK premium zippers",
				"Tailored athletic fit",
				"Interior security pocket",
			},
		},
		"PROD-002": {
			ProductID:   "PROD-002",
			Name:        "Technical Cashmere Sweater",
			Description: "Luxury cashmere blend sweater with enhanced durability. Temperature-regulating fabric maintains comfort in all seasons. Modern slim fit with reinforced elbows.",
			Price:       485.00,
			Category:    "Knitwear",
			InStock:     true,
			Features: []string{
				"80% Cashmere, 20% Technical Fiber",
				"Temperature regulating",
				"Reinforced high-wear areas",
				"Pilling resistant",
				"Modern slim fit",
			},
		},
		"PROD-003": {
			ProductID:   "PROD-003",
			Name:        "Heritage Leather Weekender Bag",
			Description: "Full-grain Italian leather weekender with brass hardware. Hand-stitched construction and canvas lining. Develops unique patina over time. Limited edition colorway.",
			Price:       1250.00,
			Category:    "Accessories",
			InStock:     false,
			Features: []string{
				"Full-grain Italian leather",
				"Brass hardware",
				"Hand-stitched seams",
				"Canvas interior lining",
				"Develops natural patina",
			},
		},
		"PROD-004": {
			ProductID:   "PROD-004",
			Name:        "Performance Stretch Trousers",
			Description: "Japanese technical fabric trousers with four-way stretch and wrinkle resistance. Water-repellent finish with hidden zip pockets. Perfect for travel and active lifestyle.",
			Price:       395.00,
			Category:    "Bottoms",
			InStock:     true,
			Features: []string{
				"Japanese technical fabric",
				"Four-way stretch",
				"Wrinkle resistant",
				"Water repellent",
				"Hidden security pockets",
			},
		},
		"PROD-005": {
			ProductID:   "PROD-005",
			Name:        "Lightweight Down Vest",
			Description: "Premium 800-fill goose down vest with ultra-lightweight construction. Packable design fits into its own pocket. Ideal for layering or travel.",
			Price:       325.00,
			Category:    "Outerwear",
			InStock:     true,
			Features: []string{
				"800-fill goose down",
				"Ultra-lightweight ripstop fabric",
				"Packable into pocket",
				"DWR water treatment",
				"Slim athletic fit",
			},
		},
		"PROD-006": {
			ProductID:   "PROD-006",
			Name:        "Swiss Automatic Watch",
			Description: "Swiss-made automatic timepiece with sapphire crystal and exhibition caseback. 42mm stainless steel case with Italian leather strap. 100m water resistance.",
			Price:       2850.00,
			Category:    "Accessories",
			InStock:     true,
			Features: []string{
				"Swiss automatic movement",
				"Sapphire crystal",
				"Exhibition caseback",
				"Italian leather strap",
				"100m water resistance",
			},
		},
		"PROD-007": {
			ProductID:   "PROD-007",
			Name:        "Merino Wool Base Layer Set",
			Description: "Premium merino wool base layer system. Moisture-wicking and odor-resistant. Flatlock seams prevent chafing. Essential for all-season performance.",
			Price:       245.00,
			Category:    "Base Layers",
			InStock:     true,
			Features: []string{
				"New Zealand Merino Wool",
				"Moisture-wicking",
				"Naturally odor-resistant",
				"Flatlock seams",
				"Temperature regulating",
			},
		},
		"PROD-008": {
			ProductID:   "PROD-008",
			Name:        "Premium Leather Chelsea Boots",
			Description: "Handcrafted Italian leather Chelsea boots with Goodyear welt construction. Blake-stitched leather sole and cushioned insole. Modern silhouette with elastic side panels.",
			Price:       725.00,
			Category:    "Footwear",
			InStock:     true,
			Features: []string{
				"Italian calfskin leather",
				"Goodyear welt construction",
				"Blake-stitched leather sole",
				"Cushioned leather insole",
				"Elastic side panels",
			},
		},
	}
}

func mockPolicies() map[string]PolicyDocument {
	return map[string]PolicyDocument{
		"POL-001": {
			DocID: "POL-001",
			Title: "Shipping and Delivery",
			Content: "Complimentary white-glove delivery service on all orders. Standard delivery takes 3-5 business days " +
				"with signature required. Express delivery (1-2 business days) available for time-sensitive orders. " +
				"International shipping available to over 50 countries with customs handling included. All items are " +
				"meticulously packaged in luxury presentation boxes. Track your order with real-time updates via SMS and email.",
			Category: "shipping",
			Keywords: []string{"shipping", "delivery", "white-glove", "express", "international", "luxury packaging", "tracking"},
		},
		"POL-002": {
			DocID: "POL-002",
			Title: "Returns and Exchanges",
			Content: "We offer a 60-day return policy for unworn items with original tags attached. Complimentary return " +
				"shipping provided for all returns. Items can be exchanged for different sizes or colors at no charge. " +
				"Our concierge team will arrange courier pickup at your convenience. Full refund processed within 5 business " +
				"days of receiving your return. Personalized or custom-tailored items are final sale.",
			Category: "returns",
			Keywords: []string{"return", "refund", "exchange", "60 days", "complimentary", "concierge", "courier pickup"},
		},
		"POL-003": {
			DocID: "POL-003",
			Title: "Quality Guarantee and Care",
			Content: "All products are backed by our lifetime quality guarantee covering craftsmanship defects. " +
				"Complimentary alterations and repairs available at our atelier for the lifetime of the garment. " +
				"Annual professional cleaning service included for leather goods. We stand behind the exceptional " +
				"quality of our materials and construction. Our care specialists provide personalized guidance on " +
				"maintaining your investment pieces.",
			Category: "warranty",
			Keywords: []string{"quality", "guarantee", "lifetime", "repair", "alterations", "care", "atelier", "craftsmanship"},
		},
		"POL-004": {
			DocID: "POL-004",
			Title: "Personal Styling Services",
			Content: "Complimentary personal styling consultation for all clients. Our expert stylists provide wardrobe " +
				"assessments, seasonal updates, and complete outfit curation. Book in-person sessions at our showrooms or " +
				"virtual consultations from anywhere. Receive personalized lookbooks tailored to your lifestyle and preferences. " +
				"Priority access to new collections and exclusive pieces. Styling services include travel wardrobe planning " +
				"and special event dressing.",
			Category: "services",
			Keywords: []string{"styling", "personal stylist", "consultation", "wardrobe", "lookbook", "exclusive", "appointment"},
		},
		"POL-005": {
			DocID: "POL-005",
			Title: "Fitting and Tailoring Services",
			Content: "Expert fitting appointments available at all our locations. Our master tailors provide precise " +
				"measurements and customization recommendations. Complimentary basic alterations on all full-price items. " +
				"Custom tailoring services for perfect fit guaranteed. Express alteration service available for time-sensitive " +
				"needs. Book appointments online or call our concierge team. Average turnaround for alterations is 7-10 days.",
			Category: "services",
			Keywords: []string{"fitting", "tailoring", "alterations", "measurements", "custom", "appointment", "perfect fit"},
		},
		"POL-006": {
			DocID: "POL-006",
			Title: "VIP Concierge Program",
			Content: "Join our VIP program for exclusive benefits and personalized service. Dedicated concierge available " +
				"24/7 for styling advice, order assistance, and special requests. Priority access to limited editions and " +
				"seasonal previews. Invitations to private shopping events and trunk shows. Complimentary gift wrapping and " +
				"monogramming services. Early access to sale events. Annual gift with purchase based on membership tier.",
			Category: "membership",
			Keywords: []string{"VIP", "concierge", "exclusive", "priority", "benefits", "membership", "private events"},
		},
		"POL-007": {
			DocID: "POL-007",
			Title: "Privacy and Security",
			Content: "We protect your personal information with bank-level encryption. Your data is never shared with " +
				"third parties for marketing purposes. Secure payment processing through certified PCI-DSS compliant systems. " +
				"All personal styling preferences and measurements are kept strictly confidential. You maintain full control " +
				"over your data with options to view, update, or delete at any time. We comply with GDPR, CCPA, and international " +
				"privacy regulations.",
			Category: "privacy",
			Keywords: []string{"privacy", "security", "data protection", "encryption", "GDPR", "CCPA", "confidential"},
		},
	}
}

// SearchProducts searches products by name, description, category, and
// features, returning matches sorted by relevance. Name matches carry the
// highest weight, then description, category, and individual features;
// per-word matches add smaller increments.
func (api *CatalogAPI) SearchProducts(query string) []Product {
	api.mu.RLock()
	defer api.mu.RUnlock()

	queryLower := strings.ToLower(query)
	queryWords := strings.Fields(queryLower)

	type scored struct {
		product Product
		score   float64
	}
	var results []scored

	for _, product := range api.products {
		score := 0.0

		name := strings.ToLower(product.Name)
		desc := strings.ToLower(product.Description)

		if strings.Contains(name, queryLower) {
			score += 10.0
		}
		if strings.Contains(desc, queryLower) {
			score += 5.0
		}
		if strings.Contains(strings.ToLower(product.Category), queryLower) {
			score += 3.0
		}
		for _, feature := range product.Features {
			if strings.Contains(strings.ToLower(feature), queryLower) {
				score += 2.0
			}
		}
		for _, word := range queryWords {
			if len(word) <= 2 {
				continue
			}
			if strings.Contains(name, word) {
				score += 1.0
			}
			if strings.Contains(desc, word) {
				score += 0.5
			}
		}

		if score > 0 {
			results = append(results, scored{product, score})
		}
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].score > results[j].score
	})

	out := make([]Product, 0, len(results))
	for _, r := range results {
		out = append(out, r.product)
	}
	return out
}

// GetProduct returns a product by its exact product id
func (api *CatalogAPI) GetProduct(productID string) (Product, bool) {
	api.mu.RLock()
	defer api.mu.RUnlock()

	product, ok := api.products[productID]
	return product, ok
}

// GetProducts returns all products in the catalog
func (api *CatalogAPI) GetProducts() []Product {
	api.mu.RLock()
	defer api.mu.RUnlock()

	out := make([]Product, 0, len(api.products))
	for _, p := range api.products {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ProductID < out[j].ProductID })
	return out
}

// GetProductsByCategory returns all products in a category, case-insensitive
func (api *CatalogAPI) GetProductsByCategory(category string) []Product {
	api.mu.RLock()
	defer api.mu.RUnlock()

	categoryLower := strings.ToLower(category)
	out := []Product{}
	for _, p := range api.products {
		if strings.ToLower(p.Category) == categoryLower {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ProductID < out[j].ProductID })
	return out
}

// GetAvailableProducts returns all in-stock products
func (api *CatalogAPI) GetAvailableProducts() []Product {
	api.mu.RLock()
	defer api.mu.RUnlock()

	out := []Product{}
	for _, p := range api.products {
		if p.InStock {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ProductID < out[j].ProductID })
	return out
}

// SearchPolicies searches policy documents across titles, content, keywords,
// and categories, returning matches sorted by relevance.
func (api *CatalogAPI) SearchPolicies(query string) []PolicyDocument {
	api.mu.RLock()
	defer api.mu.RUnlock()

	queryLower := strings.ToLower(query)
	queryWords := strings.Fields(queryLower)

	type scored struct {
		policy PolicyDocument
		score  float64
	}
	var results []scored

	for _, policy := range api.policies {
		score := 0.0

		title := strings.ToLower(policy.Title)
		content := strings.ToLower(policy.Content)

		if strings.Contains(title, queryLower) {
			score += 10.0
		}
		if strings.Contains(content, queryLower) {
			score += 5.0
		}
		for _, keyword := range policy.Keywords {
			keywordLower := strings.ToLower(keyword)
			if strings.Contains(keywordLower, queryLower) || strings.Contains(queryLower, keywordLower) {
				score += 3.0
			}
		}
		if strings.Contains(strings.ToLower(policy.Category), queryLower) {
			score += 2.0
		}
		for _, word := range queryWords {
			if len(word) <= 2 {
				continue
			}
			if strings.Contains(title, word) {
				score += 1.0
			}
			if strings.Contains(content, word) {
				score += 0.5
			}
			for _, keyword := range policy.Keywords {
				if strings.Contains(strings.ToLower(keyword), word) {
					score += 1.0
				}
			}
		}

		if score > 0 {
			results = append(results, scored{policy, score})
		}
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].score > results[j].score
	})

	out := make([]PolicyDocument, 0, len(results))
	for _, r := range results {
		out = append(out, r.policy)
	}
	return out
}

// GetPolicy returns a policy document by id
func (api *CatalogAPI) GetPolicy(docID string) (PolicyDocument, bool) {
	api.mu.RLock()
	defer api.mu.RUnlock()

	policy, ok := api.policies[docID]
	return policy, ok
}

// GetPoliciesByCategory returns all policy documents in a category
func (api *CatalogAPI) GetPoliciesByCategory(category string) []PolicyDocument {
	api.mu.RLock()
	defer api.mu.RUnlock()

	categoryLower := strings.ToLower(category)
	out := []PolicyDocument{}
	for _, p := range api.policies {
		if strings.ToLower(p.Category) == categoryLower {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].DocID < out[j].DocID })
	return out
}
