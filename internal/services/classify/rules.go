package classify

import (
	"strings"

	"github.com/bobmcallan/vire-recon/internal/models"
)

type staticEntry struct {
	Sector   string
	Industry string
	Region   string
}

// builtinSymbols is the static symbol table consulted before any lookup
var builtinSymbols = map[string]staticEntry{
	"STAG":   {Sector: "Industrial REIT", Industry: "Industrial REITs", Region: "US"},
	"REXR":   {Sector: "Industrial REIT", Industry: "Industrial REITs", Region: "US"},
	"O":      {Sector: "Retail REIT", Industry: "Retail REITs", Region: "US"},
	"ZRE":    {Sector: "REIT ETF", Industry: "Real Estate Management & Development", Region: "Canada"},
	"VRE":    {Sector: "REIT ETF", Industry: "Real Estate Management & Development", Region: "Canada"},
	"XRE":    {Sector: "REIT ETF", Industry: "Real Estate Management & Development", Region: "Canada"},
	"VNQ":    {Sector: "REIT ETF", Industry: "Real Estate Management & Development", Region: "US"},
	"IYR":    {Sector: "REIT ETF", Industry: "Real Estate Management & Development", Region: "US"},
	"AAPL":   {Sector: "Technology Hardware", Industry: "Technology Hardware, Storage & Peripherals", Region: "US"},
	"GOOGL":  {Sector: "Internet Services", Industry: "Interactive Media & Services", Region: "US"},
	"MSFT":   {Sector: "Software", Industry: "Systems Software", Region: "US"},
	"AMZN":   {Sector: "E-commerce", Industry: "Internet & Direct Marketing Retail", Region: "US"},
	"ADBE":   {Sector: "Software", Industry: "Application Software", Region: "US"},
	"CRM":    {Sector: "Software", Industry: "Application Software", Region: "US"},
	"SHOP":   {Sector: "E-commerce Software", Industry: "Application Software", Region: "Canada"},
	"NFLX":   {Sector: "Streaming Services", Industry: "Entertainment", Region: "US"},
	"TSLA":   {Sector: "Electric Vehicles", Industry: "Automobile Manufacturers", Region: "US"},
	"NVDA":   {Sector: "Semiconductors", Industry: "Semiconductors & Semiconductor Equipment", Region: "US"},
	"SMH":    {Sector: "Semiconductor ETF", Industry: "Semiconductors & Semiconductor Equipment", Region: "US"},
	"TAN":    {Sector: "Clean Energy ETF", Industry: "Independent Power and Renewable Electricity Producers", Region: "US"},
	"PFE":    {Sector: "Pharmaceuticals", Industry: "Pharmaceuticals", Region: "US"},
	"MRK":    {Sector: "Pharmaceuticals", Industry: "Pharmaceuticals", Region: "US"},
	"JNJ":    {Sector: "Healthcare Conglomerate", Industry: "Health Care Equipment & Supplies", Region: "US"},
	"UNH":    {Sector: "Health Insurance", Industry: "Managed Health Care", Region: "US"},
	"ABBV":   {Sector: "Pharmaceuticals", Industry: "Pharmaceuticals", Region: "US"},
	"XLV":    {Sector: "Healthcare ETF", Industry: "Health Care Equipment & Supplies", Region: "US"},
	"T":      {Sector: "Telecommunications", Industry: "Integrated Telecommunication Services", Region: "US"},
	"VZ":     {Sector: "Telecommunications", Industry: "Integrated Telecommunication Services", Region: "US"},
	"CMCSA":  {Sector: "Media & Communications", Industry: "Cable & Satellite", Region: "US"},
	"DIS":    {Sector: "Entertainment", Industry: "Entertainment", Region: "US"},
	"XLC":    {Sector: "Communications ETF", Industry: "Integrated Telecommunication Services", Region: "US"},
	"NKE":    {Sector: "Apparel & Footwear", Industry: "Apparel, Accessories & Luxury Goods", Region: "US"},
	"HD":     {Sector: "Home Improvement Retail", Industry: "Home Improvement Retail", Region: "US"},
	"MCD":    {Sector: "Restaurants", Industry: "Restaurants", Region: "US"},
	"XLY":    {Sector: "Consumer Discretionary ETF", Industry: "Automobile Manufacturers", Region: "US"},
	"PG":     {Sector: "Consumer Products", Industry: "Household Products", Region: "US"},
	"KO":     {Sector: "Beverages", Industry: "Soft Drinks & Non-alcoholic Beverages", Region: "US"},
	"WMT":    {Sector: "Retail", Industry: "Hypermarkets & Super Centers", Region: "US"},
	"XLP":    {Sector: "Consumer Staples ETF", Industry: "Food & Staples Retailing", Region: "US"},
	"UPS":    {Sector: "Transportation", Industry: "Air Freight & Logistics", Region: "US"},
	"BA":     {Sector: "Aerospace", Industry: "Aerospace & Defense", Region: "US"},
	"CAT":    {Sector: "Heavy Machinery", Industry: "Construction & Mining Machinery", Region: "US"},
	"GE":     {Sector: "Industrial Conglomerate", Industry: "Industrial Conglomerates", Region: "US"},
	"XLI":    {Sector: "Industrial ETF", Industry: "Industrial Conglomerates", Region: "US"},
	"NEE":    {Sector: "Electric Utilities", Industry: "Electric Utilities", Region: "US"},
	"DUK":    {Sector: "Electric Utilities", Industry: "Electric Utilities", Region: "US"},
	"SO":     {Sector: "Electric Utilities", Industry: "Electric Utilities", Region: "US"},
	"XLU":    {Sector: "Utilities ETF", Industry: "Electric Utilities", Region: "US"},
	"ARX":    {Sector: "Oil & Gas Exploration", Industry: "Oil & Gas Exploration & Production", Region: "Canada"},
	"CNQ":    {Sector: "Oil & Gas Exploration", Industry: "Oil & Gas Exploration & Production", Region: "Canada"},
	"CVE":    {Sector: "Oil & Gas Exploration", Industry: "Oil & Gas Exploration & Production", Region: "Canada"},
	"ENB":    {Sector: "Energy Infrastructure", Industry: "Oil & Gas Storage & Transportation", Region: "Canada"},
	"PPL":    {Sector: "Energy Infrastructure", Industry: "Oil & Gas Storage & Transportation", Region: "Canada"},
	"XLE":    {Sector: "Energy ETF", Industry: "Oil & Gas Exploration & Production", Region: "US"},
	"XEG":    {Sector: "Energy ETF", Industry: "Oil & Gas Exploration & Production", Region: "Canada"},
	"JPM":    {Sector: "Banking", Industry: "Diversified Banks", Region: "US"},
	"BAC":    {Sector: "Banking", Industry: "Diversified Banks", Region: "US"},
	"WFC":    {Sector: "Banking", Industry: "Diversified Banks", Region: "US"},
	"GS":     {Sector: "Investment Banking", Industry: "Investment Banking & Brokerage", Region: "US"},
	"XLF":    {Sector: "Financial ETF", Industry: "Diversified Banks", Region: "US"},
	"FCX":    {Sector: "Mining", Industry: "Copper", Region: "US"},
	"NEM":    {Sector: "Mining", Industry: "Gold", Region: "US"},
	"XLB":    {Sector: "Materials ETF", Industry: "Diversified Chemicals", Region: "US"},
	"TLT":    {Sector: "Government Bonds", Industry: "Asset Management & Custody Banks", Region: "US"},
	"IEF":    {Sector: "Government Bonds", Industry: "Asset Management & Custody Banks", Region: "US"},
	"SHY":    {Sector: "Government Bonds", Industry: "Asset Management & Custody Banks", Region: "US"},
	"LQD":    {Sector: "Corporate Bonds", Industry: "Asset Management & Custody Banks", Region: "US"},
	"HYG":    {Sector: "High Yield Bonds", Industry: "Asset Management & Custody Banks", Region: "US"},
	"BNDX":   {Sector: "International Bonds", Industry: "Asset Management & Custody Banks", Region: "Global"},
	"MNY":    {Sector: "Money Market", Industry: "Asset Management & Custody Banks", Region: "Canada"},
	"HISU.U": {Sector: "Money Market", Industry: "Asset Management & Custody Banks", Region: "US"},
	"ICSH":   {Sector: "Short-Term Bonds", Industry: "Asset Management & Custody Banks", Region: "US"},
	"CDZ":    {Sector: "Dividend ETF", Industry: "Asset Management & Custody Banks", Region: "Canada"},
	"XDV":    {Sector: "Dividend ETF", Industry: "Asset Management & Custody Banks", Region: "Canada"},
	"XIC":    {Sector: "Broad Market ETF", Industry: "Asset Management & Custody Banks", Region: "Canada"},
	"VCN":    {Sector: "Broad Market ETF", Industry: "Asset Management & Custody Banks", Region: "Canada"},
	"ZCN":    {Sector: "Broad Market ETF", Industry: "Asset Management & Custody Banks", Region: "Canada"},
	"SCHD":   {Sector: "Dividend ETF", Industry: "Asset Management & Custody Banks", Region: "US"},
	"VTI":    {Sector: "Broad Market ETF", Industry: "Asset Management & Custody Banks", Region: "US"},
	"SPY":    {Sector: "Large Cap ETF", Industry: "Asset Management & Custody Banks", Region: "US"},
	"IVV":    {Sector: "Large Cap ETF", Industry: "Asset Management & Custody Banks", Region: "US"},
	"VOO":    {Sector: "Large Cap ETF", Industry: "Asset Management & Custody Banks", Region: "US"},
	"QQQ":    {Sector: "Technology ETF", Industry: "Asset Management & Custody Banks", Region: "US"},
	"IEV":    {Sector: "European ETF", Industry: "Asset Management & Custody Banks", Region: "Europe"},
	"XEH":    {Sector: "International ETF", Industry: "Asset Management & Custody Banks", Region: "Global"},
	"VEA":    {Sector: "Developed Markets ETF", Industry: "Asset Management & Custody Banks", Region: "Global"},
	"VWO":    {Sector: "Emerging Markets ETF", Industry: "Asset Management & Custody Banks", Region: "Global"},
	"ACWI":   {Sector: "Global ETF", Industry: "Asset Management & Custody Banks", Region: "Global"},
	"BABA":   {Sector: "E-commerce", Industry: "Internet & Direct Marketing Retail", Region: "China"},
	"PDD":    {Sector: "E-commerce", Industry: "Internet & Direct Marketing Retail", Region: "China"},
	"TSM":    {Sector: "Semiconductors", Industry: "Semiconductors & Semiconductor Equipment", Region: "Taiwan"},
	"BN":     {Sector: "Asset Management", Industry: "Asset Management & Custody Banks", Region: "Canada"},
	"LULU":   {Sector: "Apparel", Industry: "Apparel, Accessories & Luxury Goods", Region: "Canada"},
	"MC":     {Sector: "Auto Parts", Industry: "Auto Parts & Equipment", Region: "Canada"},
	"ELV":    {Sector: "Health Insurance", Industry: "Managed Health Care", Region: "US"},
	"KKR":    {Sector: "Private Equity", Industry: "Asset Management & Custody Banks", Region: "US"},
	"RCI.B":  {Sector: "Telecommunications", Industry: "Integrated Telecommunication Services", Region: "Canada"},
	"BEPC":   {Sector: "Renewable Energy", Industry: "Independent Power and Renewable Electricity Producers", Region: "Canada"},
	"EPD":    {Sector: "Energy Infrastructure", Industry: "Oil & Gas Storage & Transportation", Region: "US"},
	"ET":     {Sector: "Energy Infrastructure", Industry: "Oil & Gas Storage & Transportation", Region: "US"},
}

// keywordRule assigns a sector from name keywords. It never supplies a
// region, so a keyword match alone leaves the holding partially classified.
type keywordRule struct {
	keywords []string
	sector   string
	industry string
}

var keywordRules = []keywordRule{
	{[]string{"reit", "real estate", "realty", "property", "properties"}, "Real Estate", "REITs"},
	{[]string{"treasury", "government bond", "corporate bond", "bond", "debenture", "fixed income"}, "Fixed Income", "Bonds"},
	{[]string{"money market", "high interest savings", "cash management", "savings account", "ultra short", "ultra-short"}, "Cash & Equivalents", "Money Market"},
	{[]string{"pipeline", "oil & gas", "energy"}, "Energy", models.Unknown},
	{[]string{"bank", "financial"}, "Financials", models.Unknown},
	{[]string{"semiconductor", "software", "technology"}, "Information Technology", models.Unknown},
}

// ruleLookup resolves a symbol from the static table, then from name
// keywords. The second result reports whether the record is complete.
func ruleLookup(symbol, name string) (*models.ClassificationRecord, bool) {
	if e, ok := builtinSymbols[strings.ToUpper(symbol)]; ok {
		return &models.ClassificationRecord{
			Symbol:       symbol,
			Sector:       e.Sector,
			Industry:     e.Industry,
			IssuerRegion: e.Region,
			Confidence:   1,
			Source:       models.SourceRuleBased,
		}, true
	}

	lower := strings.ToLower(name)
	for _, r := range keywordRules {
		for _, kw := range r.keywords {
			if strings.Contains(lower, kw) {
				return &models.ClassificationRecord{
					Symbol:       symbol,
					Sector:       r.sector,
					Industry:     r.industry,
					IssuerRegion: models.Unknown,
					Confidence:   0.6,
					Source:       models.SourceRuleBased,
				}, false
			}
		}
	}
	return nil, false
}
