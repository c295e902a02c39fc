package property

var defaultProperties = []Property{
	{
		Code:    "patriot",
		Name:    "Patriot Village",
		Street:  "360 Pennington Ave",
		City:    "Trenton",
		State:   "NJ",
		Zip:     "08618",
		Website: "patriotvillagenj.com",
	},
	{
		Code:    "patvlg2",
		Name:    "Jennings Village",
		Street:  "461-471 Brunswick Ave",
		City:    "Trenton",
		State:   "NJ",
		Zip:     "08638",
		Website: "jenningsvillage.com",
	},
	{
		Code:    "concord",
		Name:    "Concord Residences",
		Street:  "10 Concord St",
		City:    "Hillsborough",
		State:   "NJ",
		Zip:     "08540",
		Website: "concordresidences.com",
	},
	{
		Code:    "amwell",
		Name:    "Westering Place",
		Street:  "2 CPL Langon Way",
		City:    "Hillsborogh",
		State:   "NJ",
		Zip:     "08844",
		Website: "rpmhillsborough.com",
	},
}

// Default returns the built-in directory of managed properties.
func Default() *Directory {
	d, err := NewDirectory(defaultProperties)
	if err != nil {
		panic("property: invalid built-in directory: " + err.Error())
	}
	return d
}
