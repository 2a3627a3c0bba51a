package ai

// keywordCategory is one built-in aisle with the product names that belong
// to it verbatim.
type keywordCategory struct {
	Name  string
	Emoji string
	Words []string
}

var keywordCategories = []keywordCategory{
	{"Produce", "🥕", []string{
		"apple", "apples", "banana", "bananas", "orange", "oranges", "lemon",
		"lemons", "lime", "limes", "avocado", "avocados", "tomato", "tomatoes",
		"potato", "potatoes", "onion", "onions", "garlic", "lettuce", "spinach",
		"kale", "broccoli", "carrots", "celery", "cucumber", "cucumbers",
		"peppers", "mushrooms", "corn", "grapes", "strawberries", "blueberries",
		"raspberries", "watermelon", "pineapple", "mango", "peach", "peaches",
		"pear", "pears", "cilantro", "basil", "parsley", "ginger", "jalapeño",
		"zucchini", "asparagus", "green beans",
	}},
	{"Dairy", "🥛", []string{
		"milk", "eggs", "butter", "cheese", "yogurt", "cream cheese",
		"sour cream", "heavy cream", "half and half", "cottage cheese",
	}},
	{"Meat & Seafood", "🥩", []string{
		"chicken", "beef", "pork", "turkey", "bacon", "sausage", "ham", "steak",
		"salmon", "shrimp", "tuna", "fish", "ground beef", "ground turkey",
		"hot dogs", "deli meat", "lamb", "crab", "lobster", "tilapia",
	}},
	{"Bakery", "🍞", []string{
		"bread", "bagels", "tortillas", "rolls", "buns", "muffins",
		"croissants", "pita",
	}},
	{"Pantry", "🥫", []string{
		"rice", "pasta", "flour", "sugar", "salt", "pepper", "oil", "olive oil",
		"vinegar", "soy sauce", "ketchup", "mustard", "mayonnaise", "honey",
		"peanut butter", "jelly", "jam", "cereal", "oatmeal", "canned beans",
		"canned tomatoes", "soup", "broth", "beans", "lentils", "nuts",
		"almonds", "spaghetti", "noodles", "maple syrup", "hot sauce", "salsa",
	}},
	{"Frozen", "🧊", []string{
		"ice cream", "frozen pizza", "frozen veggies", "frozen fruit",
		"frozen waffles", "popsicles",
	}},
	{"Beverages", "🧃", []string{
		"water", "juice", "coffee", "tea", "soda", "beer", "wine", "kombucha",
		"lemonade", "sparkling water",
	}},
	{"Snacks", "🍿", []string{
		"chips", "crackers", "cookies", "popcorn", "pretzels", "granola bars",
		"trail mix", "candy", "chocolate", "fruit snacks",
	}},
	{"Household", "🧻", []string{
		"paper towels", "toilet paper", "trash bags", "dish soap",
		"laundry detergent", "sponges", "aluminum foil", "plastic wrap",
		"zip bags", "ziplock bags", "light bulbs", "batteries", "napkins",
		"cleaning spray", "bleach",
	}},
	{"Personal Care", "🧴", []string{
		"shampoo", "conditioner", "soap", "body wash", "toothpaste",
		"toothbrush", "deodorant", "lotion", "sunscreen", "floss", "razors",
		"tissues", "band-aids",
	}},
}

// keywordPhrase matches any product name containing one of Parts. Runs are
// checked in order, so more specific phrases come first.
type keywordPhrase struct {
	Category string
	Parts    []string
}

var keywordPhrases = []keywordPhrase{
	{"Meat & Seafood", []string{
		"chicken breast", "chicken thigh", "chicken wing", "ground beef",
		"ground turkey", "deli meat", "pork chop", "hot dog",
	}},
	{"Dairy", []string{
		"cream cheese", "sour cream", "heavy cream", "cottage cheese",
		"half and half", "greek yogurt", "almond milk", "oat milk", "yogurt",
		"cheese", "milk", "butter", "cream", "egg",
	}},
	{"Produce", []string{
		"salad mix", "baby spinach", "green onion", "sweet potato",
		"bell pepper", "cherry tomato", "romaine", "arugula", "cabbage",
		"cauliflower", "squash", "melon", "berry", "berries", "fruit", "herb",
		"lettuce", "spinach", "kale", "apple", "banana", "tomato", "potato",
		"onion", "pepper", "carrot", "celery",
	}},
	{"Bakery", []string{
		"sourdough", "whole wheat", "bread", "bagel", "tortilla", "bun", "roll",
		"muffin", "croissant",
	}},
	{"Pantry", []string{
		"peanut butter", "olive oil", "coconut oil", "maple syrup", "hot sauce",
		"soy sauce", "pasta sauce", "tomato sauce", "canned", "cereal",
		"oatmeal", "granola", "rice", "pasta", "noodle", "flour", "sugar",
		"spice", "seasoning", "sauce", "broth", "stock", "soup", "bean",
		"lentil",
	}},
	{"Frozen", []string{
		"frozen", "ice cream", "popsicle",
	}},
	{"Beverages", []string{
		"sparkling water", "orange juice", "apple juice", "coffee", "tea",
		"juice", "soda", "water", "beer", "wine", "drink",
	}},
	{"Snacks", []string{
		"granola bar", "trail mix", "fruit snack", "chip", "cracker", "cookie",
		"popcorn", "pretzel", "candy", "chocolate", "snack",
	}},
	{"Household", []string{
		"paper towel", "toilet paper", "trash bag", "garbage bag", "dish soap",
		"laundry", "detergent", "cleaner", "cleaning", "sponge", "foil",
		"plastic wrap", "ziplock", "battery", "light bulb",
	}},
	{"Personal Care", []string{
		"body wash", "shampoo", "conditioner", "toothpaste", "toothbrush",
		"deodorant", "lotion", "sunscreen", "razor", "tissue", "band-aid",
	}},
}
