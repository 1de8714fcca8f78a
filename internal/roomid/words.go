package roomid

var moods = []string{
	"amber", "breezy", "candid", "dapper", "eager", "fabled", "gusty", "hushed", "idle", "jaunty",
	"keen", "lucid", "mellow", "nimble", "opal", "plush", "quaint", "rustic", "snug", "tidy",
	"upbeat", "vivid", "witty", "zesty", "bold", "crisp", "dusky", "frosty", "lively", "sunny",
}

var places = []string{
	"attic", "bay", "cabin", "dock", "estuary", "fjord", "garden", "harbor", "island", "jetty",
	"kiosk", "lagoon", "marsh", "nook", "oasis", "parlor", "quarry", "reef", "studio", "terrace",
	"valley", "wharf", "grove", "summit", "plaza", "hollow", "porch", "cove", "loft", "mesa",
}

var things = []string{
	"anchor", "banjo", "compass", "drum", "easel", "fiddle", "gong", "harp", "inkwell", "kettle",
	"ladder", "mitten", "notebook", "oar", "pennant", "quill", "rudder", "sextant", "teapot", "ukulele",
	"violin", "whistle", "yarn", "zither", "beacon", "candle", "dial", "flute", "globe", "lamp",
}

// lists are drawn from in order, one word each.
var lists = [][]string{moods, places, things}
