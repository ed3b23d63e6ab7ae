package i18n

var catalog = map[string]map[string]string{
	French: {
		"header.langToggle": "EN",

		"common.success":   "Succès",
		"common.confirmed": "Confirmé",

		"signup.errorInvalidUsername":   "Nom d'utilisateur invalide (3 à 20 caractères, lettres, chiffres et _ seulement)",
		"signup.errorUserNotFound":      "Nom d'utilisateur Roblox introuvable",
		"signup.validationWarning":      "Impossible de vérifier le nom d'utilisateur pour le moment. Inscription permise.",
		"signup.errorSelectTournament":  "Veuillez choisir un tournoi",
		"signup.errorAgeConfirm":        "Veuillez confirmer votre âge",
		"signup.errorRulesConfirm":      "Veuillez accepter les règlements",
		"signup.errorAlreadyRegistered": "Ce joueur est déjà inscrit à ce tournoi",
		"signup.errorServerError":       "Erreur du serveur. Veuillez réessayer plus tard.",
		"signup.errorInProgress":        "Inscription déjà en cours",

		"bracket.statusUpcoming": "En attente",

		"landing.tournament2Title": "Tournoi à venir",

		"tournamentInfo.pageTitle":          "Infos tournoi",
		"tournamentInfo.registrationClosed": "Tournoi complet – Inscriptions fermées",
		"tournamentInfo.rivalsSubtitle":     "13–18 ans • FFA puis élimination directe",
		"tournamentInfo.noTournament":       "Tournoi",
		"tournamentInfo.selectFromHome":     "Choisissez un tournoi depuis l’accueil pour voir ses infos.",
		"tournamentInfo.moreInfoSoon":       "Plus d’infos à venir pour ce tournoi.",
	},
	English: {
		"header.langToggle": "FR",

		"common.success":   "Success",
		"common.confirmed": "Confirmed",

		"signup.errorInvalidUsername":   "Invalid username (3-20 characters, letters, digits and _ only)",
		"signup.errorUserNotFound":      "Roblox username not found",
		"signup.validationWarning":      "Cannot verify username right now. Proceeding...",
		"signup.errorSelectTournament":  "Please select a tournament",
		"signup.errorAgeConfirm":        "Please confirm your age",
		"signup.errorRulesConfirm":      "Please accept the rules",
		"signup.errorAlreadyRegistered": "This player is already registered for this tournament",
		"signup.errorServerError":       "Server error. Please try again later.",
		"signup.errorInProgress":        "A registration is already in progress",

		"bracket.statusUpcoming": "Pending",

		"landing.tournament2Title": "Upcoming tournament",

		"tournamentInfo.pageTitle":          "Tournament info",
		"tournamentInfo.registrationClosed": "Tournament full – Registration closed",
		"tournamentInfo.rivalsSubtitle":     "Ages 13–18 • FFA then single elimination",
		"tournamentInfo.noTournament":       "Tournament",
		"tournamentInfo.selectFromHome":     "Pick a tournament from the home page to see its details.",
		"tournamentInfo.moreInfoSoon":       "More info coming soon for this tournament.",
	},
}
