package catalog

// Bridge for the external test package.
var PremiumPriceCents = premiumPriceCents
