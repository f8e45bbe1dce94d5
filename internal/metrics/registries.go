package metrics

// CompanyRegistry returns the metric layout of a company in the business ruleset.
func CompanyRegistry() *Registry {
	return MustRegistry(
		Category{Name: "business", Fields: []Field{
			{Name: "cash", Default: 100000},
			{Name: "revenue", Default: 0},
			{Name: "profit_margin", Default: 0},
			{Name: "market_share", Default: 5},
			{Name: "reputation", Default: 50},
			{Name: "efficiency", Default: 50},
		}},
		Category{Name: "production", Fields: []Field{
			{Name: "units_produced", Default: 0, Integer: true},
			{Name: "production_capacity", Default: 1000, Integer: true},
			{Name: "material_cost_per_unit", Default: 10},
			{Name: "production_time_days", Default: 7, Integer: true},
			{Name: "quality_score", Default: 70},
		}},
		Category{Name: "workforce", Fields: []Field{
			{Name: "total_employees", Default: 50, Integer: true},
			{Name: "average_salary", Default: 50000},
			{Name: "employee_satisfaction", Default: 70},
			{Name: "productivity", Default: 70},
			{Name: "training_level", Default: 50},
		}},
		Category{Name: "marketing", Fields: []Field{
			{Name: "brand_awareness", Default: 30},
			{Name: "customer_loyalty", Default: 60},
			{Name: "marketing_budget", Default: 10000},
			{Name: "customer_acquisition_cost", Default: 50},
			{Name: "market_penetration", Default: 15},
		}},
	)
}

// CountryRegistry returns the indicator layout of a country in the global ruleset.
func CountryRegistry() *Registry {
	return MustRegistry(
		Category{Name: "economic", Fields: []Field{
			{Name: "gdp", Default: 1000},
			{Name: "gdp_growth", Default: 2.5},
			{Name: "employment_rate", Default: 92},
			{Name: "trade_balance", Default: 50},
			{Name: "treasury", Default: 500},
		}},
		Category{Name: "environmental", Fields: []Field{
			{Name: "air_quality", Default: 60},
			{Name: "renewable_energy", Default: 20},
			{Name: "biodiversity", Default: 60},
			{Name: "carbon_emissions", Default: 50},
		}},
		Category{Name: "cultural", Fields: []Field{
			{Name: "cultural_influence", Default: 50},
			{Name: "education_index", Default: 60},
			{Name: "tourism", Default: 40},
			{Name: "social_cohesion", Default: 60},
		}},
		Category{Name: "business", Fields: []Field{
			{Name: "business_confidence", Default: 50},
			{Name: "foreign_investment", Default: 30},
			{Name: "worker_skill", Default: 50},
			{Name: "worker_wellbeing", Default: 60},
		}},
		Category{Name: "manufacturing", Fields: []Field{
			{Name: "production_output", Default: 50},
			{Name: "material_quality", Default: 60},
			{Name: "supply_chain_resilience", Default: 50},
			{Name: "automation_level", Default: 30},
		}},
		Category{Name: "logistics", Fields: []Field{
			{Name: "shipping_efficiency", Default: 50},
			{Name: "infrastructure_quality", Default: 55},
			{Name: "delivery_speed", Default: 50},
			{Name: "logistics_cost", Default: 50},
		}},
		Category{Name: "marketing", Fields: []Field{
			{Name: "national_brand", Default: 40},
			{Name: "export_demand", Default: 45},
			{Name: "consumer_trust", Default: 55},
			{Name: "market_reach", Default: 35},
		}},
	)
}
