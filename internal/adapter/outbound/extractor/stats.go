package extractor

import (
	"regexp"
	"sort"
	"strings"

	"scriptdex/internal/adapter/outbound/luaparse"
)

type statArg struct {
	key string
	arg int
}

// statMethods maps component -> setter method -> the stat keys fed by its arguments.
var statMethods = map[string]map[string][]statArg{
	"weapon": {
		"SetDamage":      {{"weapon_damage", 0}},
		"SetRange":       {{"weapon_range_min", 0}, {"weapon_range_max", 1}},
		"SetAttackRange": {{"weapon_range", 0}},
	},
	"combat": {
		"SetDefaultDamage": {{"combat_damage", 0}},
		"SetAttackPeriod":  {{"attack_period", 0}},
		"SetRange":         {{"attack_range", 0}, {"attack_range_max", 1}},
		"SetAreaDamage":    {{"area_damage", 0}},
	},
	"finiteuses": {
		"SetMaxUses": {{"uses_max", 0}},
		"SetUses":    {{"uses", 0}},
	},
	"armor": {
		"InitCondition": {{"armor_condition", 0}, {"armor_absorption", 1}},
		"SetCondition":  {{"armor_condition", 0}},
		"SetAbsorption": {{"armor_absorption", 0}},
	},
	"edible": {
		"SetHealth": {{"edible_health", 0}},
		"SetHunger": {{"edible_hunger", 0}},
		"SetSanity": {{"edible_sanity", 0}},
	},
	"perishable": {
		"SetPerishTime": {{"perish_time", 0}},
	},
	"fueled": {
		"SetFuelLevel":        {{"fuel_level", 0}},
		"InitializeFuelLevel": {{"fuel_level", 0}},
		"SetMaxFuel":          {{"fuel_max", 0}},
	},
	"equippable": {
		"SetDapperness":          {{"dapperness", 0}},
		"SetEquipSlot":           {{"equip_slot", 0}},
		"SetWalkSpeedMult":       {{"equip_walk_speed_mult", 0}},
		"SetRunSpeedMult":        {{"equip_run_speed_mult", 0}},
		"SetRestrictedTag":       {{"equip_restricted_tag", 0}},
		"SetPreventUnequipping":  {{"equip_prevent_unequip", 0}},
		"SetEquipStack":          {{"equip_stack", 0}},
		"SetInsulated":           {{"equip_insulated", 0}},
		"SetEquippedMoisture":    {{"equip_moisture", 0}},
		"SetMaxEquippedMoisture": {{"equip_moisture_max", 0}},
	},
	"insulator": {
		"SetInsulation":       {{"insulation", 0}},
		"SetWinterInsulation": {{"insulation_winter", 0}},
		"SetSummerInsulation": {{"insulation_summer", 0}},
	},
	"waterproofer": {
		"SetEffectiveness": {{"waterproof", 0}},
	},
	"light": {
		"SetRadius":    {{"light_radius", 0}},
		"SetIntensity": {{"light_intensity", 0}},
		"SetFalloff":   {{"light_falloff", 0}},
	},
	"stackable": {
		"SetMaxSize": {{"stack_size", 0}},
	},
	"health": {
		"SetMaxHealth": {{"health_max", 0}},
	},
	"sanity": {
		"SetMax":  {{"sanity_max", 0}},
		"SetRate": {{"sanity_rate", 0}},
	},
	"sanityaura": {
		"SetAura": {{"sanity_aura", 0}},
	},
	"hunger": {
		"SetMax":  {{"hunger_max", 0}},
		"SetRate": {{"hunger_rate", 0}},
	},
	"locomotor": {
		"SetWalkSpeed":               {{"walk_speed", 0}},
		"SetRunSpeed":                {{"run_speed", 0}},
		"SetExternalSpeedMultiplier": {{"speed_multiplier", 2}},
		"SetSpeedMultiplier":         {{"speed_multiplier", 0}},
	},
	"rechargeable": {
		"SetRechargeTime": {{"recharge_time", 0}},
		"SetChargeTime":   {{"recharge_time", 0}},
		"SetMaxCharge":    {{"recharge_max", 0}},
		"SetPercent":      {{"recharge_percent", 0}},
		"SetCharge":       {{"recharge_charge", 0}},
	},
	"heater": {
		"SetHeat":                  {{"heat", 0}},
		"SetRadius":                {{"heat_radius", 0}},
		"SetThermics":              {{"heater_exothermic", 0}, {"heater_endothermic", 1}},
		"SetShouldFalloff":         {{"heat_falloff", 0}},
		"SetHeatRadiusCutoff":      {{"heat_radius_cutoff", 0}},
		"SetEquippedHeat":          {{"equipped_heat", 0}},
		"SetCarriedHeat":           {{"carried_heat", 0}},
		"SetCarriedHeatMultiplier": {{"carried_heat_multiplier", 0}},
		"SetHeatRate":              {{"heat_rate", 0}},
	},
	"planardamage": {
		"SetBaseDamage":  {{"planar_damage_base", 0}},
		"SetBonusDamage": {{"planar_damage_bonus", 0}},
		"SetDamage":      {{"planar_damage", 0}},
	},
	"planararmor": {
		"SetAbsorption":     {{"planar_absorption", 0}},
		"SetBaseAbsorption": {{"planar_absorption_base", 0}},
	},
	"workable": {
		"SetWorkLeft": {{"work_left", 0}},
	},
}

// statProperties maps component -> lowercased field -> stat key.
var statProperties = map[string]map[string]string{
	"weapon":     {"damage": "weapon_damage"},
	"combat":     {"defaultdamage": "combat_damage"},
	"finiteuses": {"maxuses": "uses_max", "uses": "uses"},
	"armor":      {"absorption": "armor_absorption", "condition": "armor_condition"},
	"edible":     {"healthvalue": "edible_health", "hungervalue": "edible_hunger", "sanityvalue": "edible_sanity"},
	"perishable": {"perishtime": "perish_time"},
	"fueled":     {"maxfuel": "fuel_max"},
	"equippable": {
		"dapperness":          "dapperness",
		"equipslot":           "equip_slot",
		"walkspeedmult":       "equip_walk_speed_mult",
		"runspeedmult":        "equip_run_speed_mult",
		"restrictedtag":       "equip_restricted_tag",
		"preventunequipping":  "equip_prevent_unequip",
		"equipstack":          "equip_stack",
		"insulated":           "equip_insulated",
		"equippedmoisture":    "equip_moisture",
		"maxequippedmoisture": "equip_moisture_max",
		"is_magic_dapperness": "equip_magic_dapperness",
	},
	"insulator":    {"insulation": "insulation"},
	"waterproofer": {"effectiveness": "waterproof"},
	"light":        {"radius": "light_radius", "intensity": "light_intensity", "falloff": "light_falloff"},
	"stackable":    {"maxsize": "stack_size"},
	"health":       {"maxhealth": "health_max"},
	"sanity":       {"max": "sanity_max", "rate": "sanity_rate"},
	"sanityaura":   {"aura": "sanity_aura"},
	"hunger":       {"max": "hunger_max", "rate": "hunger_rate"},
	"locomotor":    {"walkspeed": "walk_speed", "runspeed": "run_speed"},
	"rechargeable": {
		"recharge_time": "recharge_time",
		"chargetime":    "recharge_time",
		"percent":       "recharge_percent",
		"charge":        "recharge_charge",
		"maxcharge":     "recharge_max",
		"maxrecharge":   "recharge_max",
		"total":         "recharge_max",
		"current":       "recharge_charge",
	},
	"heater": {
		"heat":                  "heat",
		"radius":                "heat_radius",
		"equippedheat":          "equipped_heat",
		"carriedheat":           "carried_heat",
		"carriedheatfn":         "carried_heat",
		"carriedheatmultiplier": "carried_heat_multiplier",
		"heatrate":              "heat_rate",
		"radius_cutoff":         "heat_radius_cutoff",
		"exothermic":            "heater_exothermic",
		"endothermic":           "heater_endothermic",
	},
	"planardamage": {"basedamage": "planar_damage_base", "bonusdamage": "planar_damage_bonus", "damage": "planar_damage"},
	"planararmor":  {"absorption": "planar_absorption", "baseabsorption": "planar_absorption_base"},
	"workable":     {"workleft": "work_left"},
}

var statKeyComponent = buildStatKeyComponent()

func buildStatKeyComponent() map[string]string {
	out := make(map[string]string)
	comps := make([]string, 0, len(statMethods))
	for c := range statMethods {
		comps = append(comps, c)
	}
	sort.Strings(comps)
	for _, c := range comps {
		methods := make([]string, 0, len(statMethods[c]))
		for m := range statMethods[c] {
			methods = append(methods, m)
		}
		sort.Strings(methods)
		for _, m := range methods {
			for _, a := range statMethods[c][m] {
				if _, ok := out[a.key]; !ok {
					out[a.key] = c
				}
			}
		}
	}
	for _, c := range sortedStringKeys(statProperties) {
		for _, prop := range sortedStringKeys(statProperties[c]) {
			key := statProperties[c][prop]
			if _, ok := out[key]; !ok {
				out[key] = c
			}
		}
	}
	return out
}

func sortedStringKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// StatComponent returns the component that defines a stat key.
func StatComponent(key string) (string, bool) {
	c, ok := statKeyComponent[key]
	return c, ok
}

// statMethodNames returns every setter name of every stat-bearing component.
func statMethodNames() []string {
	seen := make(map[string]bool)
	var out []string
	for _, methods := range statMethods {
		for m := range methods {
			if !seen[m] {
				seen[m] = true
				out = append(out, m)
			}
		}
	}
	sort.Strings(out)
	return out
}

var (
	signedNumber = regexp.MustCompile(`^[+-]?\d+(\.\d+)?$`)
	identAtEnd   = regexp.MustCompile(`([A-Za-z_][A-Za-z0-9_]*)\s*$`)
)

// scoreStatExpr ranks candidate expressions for the same stat: tuning references beat
// literals, literals beat anything else.
func scoreStatExpr(expr string) int {
	switch {
	case strings.Contains(expr, "TUNING."):
		return 3
	case expr == "true" || expr == "false" || signedNumber.MatchString(expr):
		return 2
	default:
		return 1
	}
}

// putStat stores expr under key unless an existing expression scores higher.
func putStat(out map[string]string, key, expr string) {
	expr = strings.TrimSpace(expr)
	if expr == "" {
		return
	}
	if old, ok := out[key]; ok && scoreStatExpr(expr) < scoreStatExpr(old) {
		return
	}
	out[key] = expr
}

// scanAssignmentExpr reads the right-hand side of an assignment starting at pos. It
// stops at a newline or ';' outside brackets and skips over strings.
func scanAssignmentExpr(text string, pos int) string {
	n := len(text)
	for pos < n && (text[pos] == ' ' || text[pos] == '\t') {
		pos++
	}
	start := pos
	depth := 0
	for pos < n {
		ch := text[pos]
		if ch == '"' || ch == '\'' {
			q := ch
			pos++
			for pos < n && text[pos] != q {
				if text[pos] == '\\' {
					pos++
				}
				pos++
			}
			pos++
			continue
		}
		switch ch {
		case '(', '{', '[':
			depth++
		case ')', '}', ']':
			if depth > 0 {
				depth--
			}
		case '\n', ';':
			if depth == 0 {
				return cleanAssignment(text[start:pos])
			}
		}
		pos++
	}
	return cleanAssignment(text[start:])
}

func cleanAssignment(s string) string {
	return strings.TrimSuffix(strings.TrimSpace(s), ",")
}

var aliasPatterns = []*regexp.Regexp{
	regexp.MustCompile(`local\s+([A-Za-z_][A-Za-z0-9_]*)\s*=\s*(?:inst|self)[.:]AddComponent\(\s*["']([A-Za-z0-9_]+)["']\s*\)`),
	regexp.MustCompile(`(?m)^\s*([A-Za-z_][A-Za-z0-9_]*)\s*=\s*(?:inst|self)[.:]AddComponent\(\s*["']([A-Za-z0-9_]+)["']\s*\)`),
	regexp.MustCompile(`local\s+([A-Za-z_][A-Za-z0-9_]*)\s*=\s*(?:inst|self)\.components\.([A-Za-z0-9_]+)\b`),
	regexp.MustCompile(`(?m)^\s*([A-Za-z_][A-Za-z0-9_]*)\s*=\s*(?:inst|self)\.components\.([A-Za-z0-9_]+)\b`),
	regexp.MustCompile(`local\s+([A-Za-z_][A-Za-z0-9_]*)\s*=\s*(?:inst|self)\.components\[\s*["']([A-Za-z0-9_]+)["']\s*\]`),
	regexp.MustCompile(`(?m)^\s*([A-Za-z_][A-Za-z0-9_]*)\s*=\s*(?:inst|self)\.components\[\s*["']([A-Za-z0-9_]+)["']\s*\]`),
}

// componentAliases maps local variable names to the component they hold. The first
// pattern to bind a name wins, so local declarations take precedence.
func componentAliases(text string) map[string]string {
	out := make(map[string]string)
	for _, re := range aliasPatterns {
		for _, m := range re.FindAllStringSubmatch(text, -1) {
			name, comp := m[1], strings.ToLower(m[2])
			if name == "inst" || name == "self" {
				continue
			}
			if _, ok := out[name]; !ok {
				out[name] = comp
			}
		}
	}
	return out
}

var (
	componentsDotRef   = regexp.MustCompile(`components\.([A-Za-z0-9_]+)`)
	bracketCallPattern = regexp.MustCompile(`components\[\s*["']([A-Za-z0-9_]+)["']\s*\]\s*[:.]\s*([A-Za-z0-9_]+)\s*\(`)
	dotPropPattern     = regexp.MustCompile(`components\.([A-Za-z0-9_]+)\.([A-Za-z0-9_]+)\s*=[^=]`)
	bracketPropPattern = regexp.MustCompile(`components\[\s*["']([A-Za-z0-9_]+)["']\s*\]\.([A-Za-z0-9_]+)\s*=[^=]`)
	aliasPropPattern   = regexp.MustCompile(`\b([A-Za-z_][A-Za-z0-9_]*)\.([A-Za-z0-9_]+)\s*=[^=]`)
)

// componentStatExprs recovers stat expressions from a prefab file body. compNames limits
// which components count; when empty every component referenced in the file counts.
func componentStatExprs(text string, compNames []string) map[string]string {
	out := make(map[string]string)
	allowed := make(map[string]bool)
	for _, c := range compNames {
		allowed[strings.ToLower(c)] = true
	}
	if len(allowed) == 0 {
		for _, m := range componentsDotRef.FindAllStringSubmatch(text, -1) {
			allowed[strings.ToLower(m[1])] = true
		}
	}
	aliases := componentAliases(text)

	applyCall := func(comp, method string, args []string) {
		if !allowed[comp] {
			return
		}
		for _, a := range statMethods[comp][method] {
			if a.arg < len(args) {
				putStat(out, a.key, args[a.arg])
			}
		}
	}

	for _, call := range luaparse.Calls(text, luaparse.CallOptions{Names: statMethodNames(), MemberCalls: true}) {
		comp := ""
		if m := componentsDotRef.FindAllStringSubmatch(call.FullName, -1); len(m) > 0 {
			comp = strings.ToLower(m[len(m)-1][1])
		} else {
			root := call.FullName
			if i := strings.IndexAny(root, ".:"); i >= 0 {
				root = root[:i]
			}
			comp = aliases[root]
		}
		if comp != "" {
			applyCall(comp, call.Name, call.ArgList)
		}
	}

	for _, loc := range bracketCallPattern.FindAllStringSubmatchIndex(text, -1) {
		comp := strings.ToLower(text[loc[2]:loc[3]])
		method := text[loc[4]:loc[5]]
		open := loc[1] - 1
		if closeIdx := luaparse.FindMatching(text, open, '(', ')'); closeIdx >= 0 {
			applyCall(comp, method, luaparse.SplitArgs(text[open+1:closeIdx]))
		}
	}

	applyProp := func(comp, prop string, exprStart int) {
		if !allowed[comp] {
			return
		}
		key, ok := statProperties[comp][strings.ToLower(prop)]
		if !ok {
			return
		}
		putStat(out, key, scanAssignmentExpr(text, exprStart))
	}
	for _, re := range []*regexp.Regexp{dotPropPattern, bracketPropPattern} {
		for _, loc := range re.FindAllStringSubmatchIndex(text, -1) {
			applyProp(strings.ToLower(text[loc[2]:loc[3]]), text[loc[4]:loc[5]], loc[1]-1)
		}
	}
	for _, loc := range aliasPropPattern.FindAllStringSubmatchIndex(text, -1) {
		if loc[2] > 0 && text[loc[2]-1] == '.' {
			continue
		}
		comp, ok := aliases[text[loc[2]:loc[3]]]
		if !ok {
			continue
		}
		applyProp(comp, text[loc[4]:loc[5]], loc[1]-1)
	}
	return out
}

var selfPropPattern = regexp.MustCompile(`\bself\.([A-Za-z0-9_]+)\s*=[^=]`)

// componentDefaultExprs reads the stat values a component sets on itself, either through
// its own setters or through self.field assignments in the constructor.
func componentDefaultExprs(comp, text string) map[string]string {
	out := make(map[string]string)
	methods := statMethods[comp]
	props := statProperties[comp]
	if len(methods) == 0 && len(props) == 0 {
		return out
	}

	names := make([]string, 0, len(methods))
	for m := range methods {
		names = append(names, m)
	}
	sort.Strings(names)
	for _, call := range luaparse.Calls(text, luaparse.CallOptions{Names: names, MemberCalls: true}) {
		root := call.FullName
		if i := strings.IndexAny(root, ".:"); i >= 0 {
			root = root[:i]
		}
		if root != "self" || isFunctionDefinition(text, call.Start) {
			continue
		}
		for _, a := range methods[call.Name] {
			if a.arg < len(call.ArgList) {
				putStat(out, a.key, call.ArgList[a.arg])
			}
		}
	}

	for _, loc := range selfPropPattern.FindAllStringSubmatchIndex(text, -1) {
		prop := strings.ToLower(text[loc[2]:loc[3]])
		key, ok := props[prop]
		if !ok {
			key, ok = props[strings.TrimPrefix(prop, "_")]
		}
		if !ok {
			continue
		}
		expr := scanAssignmentExpr(text, loc[1]-1)
		if expr == "" || expr == "nil" {
			continue
		}
		putStat(out, key, expr)
	}
	return out
}

// isFunctionDefinition reports whether the identifier at pos is the name in a
// "function self:Name(" header.
func isFunctionDefinition(text string, pos int) bool {
	m := identAtEnd.FindStringSubmatch(text[:pos])
	return m != nil && m[1] == "function"
}
