package engine

import "sort"

// YakuValue is one scored yaku. Yakuman entries carry Yakuman >= 1 and
// Han 0; regular entries the reverse.
type YakuValue struct {
	Name    string
	Han     int
	Yakuman int
}

// WinContext gathers everything needed to score a completed hand.
type WinContext struct {
	Seat       int
	DealerSeat int
	SeatWind   int // tile type
	RoundWind  int // tile type
	WinTile    Tile
	Tsumo      bool

	Riichi  bool
	Daburi  bool
	Ippatsu bool
	Rinshan bool
	Chankan bool
	Haitei  bool
	Houtei  bool
	Renhou  bool
	Tenhou  bool
	Chiihou bool

	DoraTypes []int
	UraTypes  []int

	Settings Settings

	Melds     []Meld
	Concealed []Tile // concealed tiles including the winning tile
}

// NoYakuError reports a complete hand with no yaku.
type NoYakuError struct{}

func (*NoYakuError) Error() string { return "engine: winning hand has no yaku" }

// WinScore is the outcome of scoring one hand.
type WinScore struct {
	Yaku    []YakuValue
	Han     int // regular han including dora; 0 for yakuman hands
	Fu      int
	Yakuman int // yakuman multiples; 0 for regular hands
}

// handSet is a set in its scoring shape: concealed decomposition sets
// and melds normalized together.
type handSet struct {
	run       bool
	base      int // lowest type for runs, the type for triplets/quads
	open      bool
	kan       bool
	closedKan bool
	// wonInto marks the concealed triplet completed by the ron tile;
	// it counts as an open triplet for concealment purposes.
	wonInto bool
}

// Evaluate scores a completed hand, choosing the best reading.
func Evaluate(ctx *WinContext) (*WinScore, error) {
	counts := countByType(ctx.Concealed)
	winType := ctx.WinTile.Type()

	// Thirteen orphans bypasses decomposition.
	if len(ctx.Melds) == 0 && isKokushi(counts) {
		return scoreKokushi(ctx, counts, winType), nil
	}

	var best *WinScore

	// Seven pairs is only ever an alternative reading; a 2-han fixed
	// 25 fu candidate competes with any standard decomposition.
	if len(ctx.Melds) == 0 && isSevenPairs(counts) {
		best = scoreChiitoi(ctx, counts)
	}

	decomps := DecomposeAll(counts, 4-len(ctx.Melds))
	for _, d := range decomps {
		for _, placed := range placements(d, winType) {
			cand := scoreStandard(ctx, d, placed)
			if cand != nil && betterScore(cand, best) {
				best = cand
			}
		}
	}

	if best == nil {
		return nil, &NoYakuError{}
	}
	if best.Yakuman == 0 && countRealHan(best.Yaku) == 0 {
		return nil, &NoYakuError{}
	}
	sortYaku(best.Yaku)
	return best, nil
}

// placement describes where the winning tile landed.
type placement struct {
	inPair  bool
	setIdx  int // index into d.Sets when not in pair
}

func placements(d Decomposition, winType int) []placement {
	var out []placement
	if d.Pair == winType {
		out = append(out, placement{inPair: true})
	}
	for i, s := range d.Sets {
		if s.Kind == SetTriplet && s.Base == winType {
			out = append(out, placement{setIdx: i})
		}
		if s.Kind == SetRun && winType >= s.Base && winType <= s.Base+2 {
			out = append(out, placement{setIdx: i})
		}
	}
	if len(out) == 0 {
		// The winning tile must be somewhere; tolerate by placing in
		// the first set so scoring still proceeds.
		out = append(out, placement{setIdx: 0})
	}
	return out
}

func betterScore(a, b *WinScore) bool {
	if b == nil {
		return true
	}
	if a.Yakuman != b.Yakuman {
		return a.Yakuman > b.Yakuman
	}
	if a.Han != b.Han {
		return a.Han > b.Han
	}
	return a.Fu > b.Fu
}

// countRealHan counts han from yaku proper, excluding dora entries.
func countRealHan(yaku []YakuValue) int {
	total := 0
	for _, y := range yaku {
		switch y.Name {
		case "dora", "ura_dora", "aka_dora":
		default:
			total += y.Han
		}
	}
	return total
}

// buildSets normalizes a decomposition plus melds into handSets.
func buildSets(ctx *WinContext, d Decomposition, placed placement) []handSet {
	sets := make([]handSet, 0, 4)
	for i, s := range d.Sets {
		hs := handSet{run: s.Kind == SetRun, base: s.Base}
		if !hs.run && !ctx.Tsumo && !placed.inPair && placed.setIdx == i {
			hs.wonInto = true
		}
		sets = append(sets, hs)
	}
	for _, m := range ctx.Melds {
		hs := handSet{base: m.Tiles[0].Type()}
		switch m.Type {
		case MeldChi:
			hs.run = true
			hs.open = true
			base := m.Tiles[0].Type()
			for _, t := range m.Tiles {
				if t.Type() < base {
					base = t.Type()
				}
			}
			hs.base = base
		case MeldPon:
			hs.open = true
		case MeldOpenKan, MeldAddedKan:
			hs.open = true
			hs.kan = true
		case MeldClosedKan:
			hs.kan = true
			hs.closedKan = true
		}
		sets = append(sets, hs)
	}
	return sets
}

func (h handSet) concealedTriplet() bool {
	return !h.run && !h.open && !h.wonInto
}

// setTypes returns the tile types a set covers.
func (h handSet) setTypes() []int {
	if h.run {
		return []int{h.base, h.base + 1, h.base + 2}
	}
	return []int{h.base}
}

// scoreStandard scores one decomposition reading.
func scoreStandard(ctx *WinContext, d Decomposition, placed placement) *WinScore {
	sets := buildSets(ctx, d, placed)
	closed := true
	for _, m := range ctx.Melds {
		if m.Opened {
			closed = false
		}
	}

	var yakuman []YakuValue
	addYakuman := func(name string, mult int) {
		if mult > 1 && !ctx.Settings.DoubleYakuman {
			mult = 1
		}
		yakuman = append(yakuman, YakuValue{Name: name, Yakuman: mult})
	}

	// ── Yakuman ───────────────────────────────────────────────
	if ctx.Tenhou {
		addYakuman("tenhou", 1)
	}
	if ctx.Chiihou {
		addYakuman("chiihou", 1)
	}
	if n := concealedTripletCount(sets); n == 4 && closed {
		if d.Pair == ctx.WinTile.Type() && placed.inPair {
			addYakuman("suuankou_tanki", 2)
		} else {
			addYakuman("suuankou", 1)
		}
	}
	if dragonsTriplets(sets) == 3 {
		addYakuman("daisangen", 1)
	}
	wt, wp := windSets(sets, d.Pair)
	if wt == 4 {
		addYakuman("daisuushi", 2)
	} else if wt == 3 && wp {
		addYakuman("shousuushi", 1)
	}
	if allHonors(sets, d.Pair) {
		addYakuman("tsuuiisou", 1)
	}
	if allTerminals(sets, d.Pair) {
		addYakuman("chinroutou", 1)
	}
	if allGreen(ctx, d, sets) {
		addYakuman("ryuuiisou", 1)
	}
	if kanCount(sets) == 4 {
		addYakuman("suukantsu", 1)
	}
	if closed && len(ctx.Melds) == 0 {
		if pure, junsei := chuuren(countByType(ctx.Concealed), ctx.WinTile.Type()); pure {
			if junsei {
				addYakuman("junsei_chuuren", 2)
			} else {
				addYakuman("chuuren", 1)
			}
		}
	}

	if len(yakuman) > 0 {
		total := 0
		for _, y := range yakuman {
			total += y.Yakuman
		}
		return &WinScore{Yaku: yakuman, Yakuman: total}
	}

	// ── Regular yaku ──────────────────────────────────────────
	var yaku []YakuValue
	add := func(name string, han int) {
		if han > 0 {
			yaku = append(yaku, YakuValue{Name: name, Han: han})
		}
	}

	if ctx.Riichi {
		if ctx.Daburi {
			add("daburu_riichi", 2)
		} else {
			add("riichi", 1)
		}
		if ctx.Ippatsu && ctx.Settings.Ippatsu {
			add("ippatsu", 1)
		}
	}
	if ctx.Tsumo && closed {
		add("menzen_tsumo", 1)
	}
	if ctx.Rinshan {
		add("rinshan_kaihou", 1)
	}
	if ctx.Chankan {
		add("chankan", 1)
	}
	if ctx.Haitei {
		add("haitei", 1)
	}
	if ctx.Houtei {
		add("houtei", 1)
	}
	if ctx.Renhou && ctx.Settings.RenhouValue == RenhouMangan {
		add("renhou", 5)
	}

	pinfu := isPinfu(ctx, d, placed, closed)
	if pinfu {
		add("pinfu", 1)
	}
	if isTanyao(sets, d.Pair) {
		add("tanyao", 1)
	}
	if closed {
		if n := iipeikoCount(d); n == 2 {
			add("ryanpeikou", 3)
		} else if n == 1 {
			add("iipeiko", 1)
		}
	}
	for ty := TypeHaku; ty <= TypeChun; ty++ {
		if hasTripletOf(sets, ty) {
			add("yakuhai_"+TypeString(ty), 1)
		}
	}
	if hasTripletOf(sets, ctx.SeatWind) {
		add("seat_wind", 1)
	}
	if hasTripletOf(sets, ctx.RoundWind) {
		add("round_wind", 1)
	}
	if sanshokuDoujun(sets) {
		add("sanshoku_doujun", openDown(closed, 2))
	}
	if sanshokuDoukou(sets) {
		add("sanshoku_doukou", 2)
	}
	if ittsu(sets) {
		add("ittsu", openDown(closed, 2))
	}
	junchanOK, chantaOK := chantaJunchan(sets, d.Pair)
	if junchanOK {
		add("junchan", openDown(closed, 3))
	} else if chantaOK {
		add("chanta", openDown(closed, 2))
	}
	if toitoi(sets) {
		add("toitoi", 2)
	}
	if n := concealedTripletCount(sets); n == 3 {
		add("sanankou", 2)
	}
	if kanCount(sets) == 3 {
		add("sankantsu", 2)
	}
	if dragonsTriplets(sets) == 2 && isDragon(d.Pair) {
		add("shousangen", 2)
	}
	if honroutou(sets, d.Pair) {
		add("honroutou", 2)
	}
	honi, chini := flush(sets, d.Pair)
	if chini {
		add("chinitsu", openDown(closed, 6))
	} else if honi {
		add("honitsu", openDown(closed, 3))
	}

	// Dora.
	allTiles := append([]Tile(nil), ctx.Concealed...)
	for _, m := range ctx.Melds {
		allTiles = append(allTiles, m.Tiles...)
	}
	if n := doraCount(allTiles, ctx.DoraTypes); n > 0 {
		add("dora", n)
	}
	if ctx.Riichi && ctx.Settings.UraDora {
		if n := doraCount(allTiles, ctx.UraTypes); n > 0 {
			add("ura_dora", n)
		}
	}
	if ctx.Settings.AkaDora > 0 {
		if n := akaCount(allTiles, ctx.Settings.AkaDora); n > 0 {
			add("aka_dora", n)
		}
	}

	if countRealHan(yaku) == 0 {
		return nil
	}

	han := 0
	for _, y := range yaku {
		han += y.Han
	}
	fu := calcFu(ctx, d, placed, sets, closed, pinfu)
	return &WinScore{Yaku: yaku, Han: han, Fu: fu}
}

func openDown(closed bool, closedHan int) int {
	if closed {
		return closedHan
	}
	return closedHan - 1
}

func scoreKokushi(ctx *WinContext, counts [TypeCount]int, winType int) *WinScore {
	mult := 1
	name := "kokushi"
	if counts[winType] == 2 && ctx.Settings.DoubleYakuman {
		// Thirteen-wait form: the pair was completed by the win tile.
		mult = 2
		name = "kokushi_13"
	}
	ys := []YakuValue{{Name: name, Yakuman: mult}}
	if ctx.Tenhou {
		ys = append(ys, YakuValue{Name: "tenhou", Yakuman: 1})
		mult++
	}
	if ctx.Chiihou {
		ys = append(ys, YakuValue{Name: "chiihou", Yakuman: 1})
		mult++
	}
	return &WinScore{Yaku: ys, Yakuman: mult}
}

func scoreChiitoi(ctx *WinContext, counts [TypeCount]int) *WinScore {
	var yaku []YakuValue
	add := func(name string, han int) {
		if han > 0 {
			yaku = append(yaku, YakuValue{Name: name, Han: han})
		}
	}
	add("chiitoitsu", 2)
	if ctx.Riichi {
		if ctx.Daburi {
			add("daburu_riichi", 2)
		} else {
			add("riichi", 1)
		}
		if ctx.Ippatsu && ctx.Settings.Ippatsu {
			add("ippatsu", 1)
		}
	}
	if ctx.Tsumo {
		add("menzen_tsumo", 1)
	}
	if ctx.Haitei {
		add("haitei", 1)
	}
	if ctx.Houtei {
		add("houtei", 1)
	}
	if ctx.Chankan {
		add("chankan", 1)
	}
	tanyao := true
	honroutouOK := true
	honors, man, pin, sou := false, false, false, false
	for ty := 0; ty < TypeCount; ty++ {
		if counts[ty] == 0 {
			continue
		}
		if typeIsTerminalOrHonor(ty) {
			tanyao = false
		} else {
			honroutouOK = false
		}
		switch {
		case ty >= 27:
			honors = true
		case ty < 9:
			man = true
		case ty < 18:
			pin = true
		default:
			sou = true
		}
	}
	if tsuuiisouCounts(counts) {
		total := 1
		return &WinScore{Yaku: []YakuValue{{Name: "tsuuiisou", Yakuman: 1}}, Yakuman: total}
	}
	if tanyao {
		add("tanyao", 1)
	}
	if honroutouOK {
		add("honroutou", 2)
	}
	suits := 0
	for _, b := range []bool{man, pin, sou} {
		if b {
			suits++
		}
	}
	if suits == 1 {
		if honors {
			add("honitsu", 3)
		} else {
			add("chinitsu", 6)
		}
	} else if suits == 0 && honors {
		// covered by tsuuiisou above
	}

	allTiles := ctx.Concealed
	if n := doraCount(allTiles, ctx.DoraTypes); n > 0 {
		add("dora", n)
	}
	if ctx.Riichi && ctx.Settings.UraDora {
		if n := doraCount(allTiles, ctx.UraTypes); n > 0 {
			add("ura_dora", n)
		}
	}
	if ctx.Settings.AkaDora > 0 {
		if n := akaCount(allTiles, ctx.Settings.AkaDora); n > 0 {
			add("aka_dora", n)
		}
	}
	han := 0
	for _, y := range yaku {
		han += y.Han
	}
	return &WinScore{Yaku: yaku, Han: han, Fu: 25}
}

func tsuuiisouCounts(counts [TypeCount]int) bool {
	for ty := 0; ty < 27; ty++ {
		if counts[ty] > 0 {
			return false
		}
	}
	return true
}

// ── predicates ───────────────────────────────────────────────

func concealedTripletCount(sets []handSet) int {
	n := 0
	for _, s := range sets {
		if s.run {
			continue
		}
		if s.closedKan || (!s.kan && !s.open && !s.wonInto) {
			n++
		}
	}
	return n
}

func kanCount(sets []handSet) int {
	n := 0
	for _, s := range sets {
		if s.kan {
			n++
		}
	}
	return n
}

func isDragon(ty int) bool { return ty >= TypeHaku }

func dragonsTriplets(sets []handSet) int {
	n := 0
	for _, s := range sets {
		if !s.run && isDragon(s.base) {
			n++
		}
	}
	return n
}

func windSets(sets []handSet, pair int) (triplets int, pairIsWind bool) {
	for _, s := range sets {
		if !s.run && s.base >= TypeEast && s.base <= TypeNorth {
			triplets++
		}
	}
	return triplets, pair >= TypeEast && pair <= TypeNorth
}

func allHonors(sets []handSet, pair int) bool {
	if !typeIsHonor(pair) {
		return false
	}
	for _, s := range sets {
		if s.run || !typeIsHonor(s.base) {
			return false
		}
	}
	return true
}

func allTerminals(sets []handSet, pair int) bool {
	isTerm := func(ty int) bool { return !typeIsHonor(ty) && (ty%9 == 0 || ty%9 == 8) }
	if !isTerm(pair) {
		return false
	}
	for _, s := range sets {
		if s.run || !isTerm(s.base) {
			return false
		}
	}
	return true
}

// greenTypes: 2,3,4,6,8 sou and hatsu.
var greenTypes = map[int]bool{19: true, 20: true, 21: true, 23: true, 25: true, TypeHatsu: true}

func allGreen(ctx *WinContext, d Decomposition, sets []handSet) bool {
	check := func(ty int) bool { return greenTypes[ty] }
	if !check(d.Pair) {
		return false
	}
	for _, s := range sets {
		for _, ty := range s.setTypes() {
			if !check(ty) {
				return false
			}
		}
	}
	return true
}

// chuuren reports nine gates on a one-suit concealed hand, and whether
// it is the pure nine-wait form.
func chuuren(counts [TypeCount]int, winType int) (ok, junsei bool) {
	suit := -1
	for ty := 0; ty < TypeCount; ty++ {
		if counts[ty] == 0 {
			continue
		}
		if typeIsHonor(ty) {
			return false, false
		}
		s := ty / 9
		if suit == -1 {
			suit = s
		} else if s != suit {
			return false, false
		}
	}
	if suit == -1 {
		return false, false
	}
	base := suit * 9
	need := [9]int{3, 1, 1, 1, 1, 1, 1, 1, 3}
	extra := -1
	for i := 0; i < 9; i++ {
		got := counts[base+i]
		switch got - need[i] {
		case 0:
		case 1:
			if extra != -1 {
				return false, false
			}
			extra = base + i
		default:
			return false, false
		}
	}
	if extra == -1 {
		return false, false
	}
	return true, extra == winType
}

func isTanyao(sets []handSet, pair int) bool {
	if typeIsTerminalOrHonor(pair) {
		return false
	}
	for _, s := range sets {
		for _, ty := range s.setTypes() {
			if typeIsTerminalOrHonor(ty) {
				return false
			}
		}
	}
	return true
}

func iipeikoCount(d Decomposition) int {
	runs := map[int]int{}
	for _, s := range d.Sets {
		if s.Kind == SetRun {
			runs[s.Base]++
		}
	}
	n := 0
	for _, c := range runs {
		n += c / 2
	}
	return n
}

func hasTripletOf(sets []handSet, ty int) bool {
	for _, s := range sets {
		if !s.run && s.base == ty {
			return true
		}
	}
	return false
}

func sanshokuDoujun(sets []handSet) bool {
	for n := 0; n <= 6; n++ {
		found := [3]bool{}
		for _, s := range sets {
			if s.run && s.base%9 == n && s.base < 27 {
				found[s.base/9] = true
			}
		}
		if found[0] && found[1] && found[2] {
			return true
		}
	}
	return false
}

func sanshokuDoukou(sets []handSet) bool {
	for n := 0; n <= 8; n++ {
		found := [3]bool{}
		for _, s := range sets {
			if !s.run && !typeIsHonor(s.base) && s.base%9 == n {
				found[s.base/9] = true
			}
		}
		if found[0] && found[1] && found[2] {
			return true
		}
	}
	return false
}

func ittsu(sets []handSet) bool {
	for suit := 0; suit < 3; suit++ {
		base := suit * 9
		have := [3]bool{}
		for _, s := range sets {
			if s.run {
				switch s.base {
				case base:
					have[0] = true
				case base + 3:
					have[1] = true
				case base + 6:
					have[2] = true
				}
			}
		}
		if have[0] && have[1] && have[2] {
			return true
		}
	}
	return false
}

// chantaJunchan reports (junchan, chanta): every set and the pair
// contain a terminal (junchan) or a terminal/honor (chanta), with at
// least one run.
func chantaJunchan(sets []handSet, pair int) (bool, bool) {
	hasRun := false
	junchan := !typeIsHonor(pair) && (pair%9 == 0 || pair%9 == 8)
	chanta := typeIsTerminalOrHonor(pair)
	for _, s := range sets {
		if s.run {
			hasRun = true
			edge := s.base%9 == 0 || s.base%9 == 6
			junchan = junchan && edge
			chanta = chanta && edge
		} else {
			term := !typeIsHonor(s.base) && (s.base%9 == 0 || s.base%9 == 8)
			junchan = junchan && term
			chanta = chanta && typeIsTerminalOrHonor(s.base)
		}
	}
	if !hasRun {
		// Without a run the shape is honroutou/chinroutou territory.
		return false, false
	}
	return junchan, chanta
}

func toitoi(sets []handSet) bool {
	for _, s := range sets {
		if s.run {
			return false
		}
	}
	return true
}

func honroutou(sets []handSet, pair int) bool {
	if !typeIsTerminalOrHonor(pair) {
		return false
	}
	for _, s := range sets {
		if s.run || !typeIsTerminalOrHonor(s.base) {
			return false
		}
	}
	return true
}

// flush reports (honitsu, chinitsu).
func flush(sets []handSet, pair int) (bool, bool) {
	suit := -1
	honors := false
	consider := func(ty int) bool {
		if typeIsHonor(ty) {
			honors = true
			return true
		}
		s := ty / 9
		if suit == -1 {
			suit = s
			return true
		}
		return s == suit
	}
	if !consider(pair) {
		return false, false
	}
	for _, s := range sets {
		for _, ty := range s.setTypes() {
			if !consider(ty) {
				return false, false
			}
		}
	}
	if suit == -1 {
		return false, false // all honors: tsuuiisou, not a flush
	}
	return honors, !honors
}

func doraCount(tiles []Tile, doraTypes []int) int {
	n := 0
	for _, t := range tiles {
		for _, d := range doraTypes {
			if t.Type() == d {
				n++
			}
		}
	}
	return n
}

func akaCount(tiles []Tile, akaDora int) int {
	if akaDora == 0 {
		return 0
	}
	n := 0
	for _, t := range tiles {
		if t.IsRedFive() {
			n++
		}
	}
	return n
}

// isPinfu: closed hand, four runs, non-yakuhai pair, open-ended wait.
func isPinfu(ctx *WinContext, d Decomposition, placed placement, closed bool) bool {
	if !closed || len(ctx.Melds) > 0 || placed.inPair {
		return false
	}
	for _, s := range d.Sets {
		if s.Kind != SetRun {
			return false
		}
	}
	if typeIsHonor(d.Pair) {
		if isDragon(d.Pair) || d.Pair == ctx.SeatWind || d.Pair == ctx.RoundWind {
			return false
		}
	}
	s := d.Sets[placed.setIdx]
	if s.Kind != SetRun {
		return false
	}
	w := ctx.WinTile.Type()
	switch {
	case w == s.Base && s.Base%9 != 6: // low end, not 7 waiting on 7-8-9's edge
		return true
	case w == s.Base+2 && s.Base%9 != 0:
		return true
	}
	// 1-2 waiting 3 and 8-9 waiting 7 are penchan; middle is kanchan.
	if w == s.Base && s.Base%9 == 6 {
		return false
	}
	if w == s.Base+2 && s.Base%9 == 0 {
		return false
	}
	return false
}

// sortYaku orders yaku deterministically for event payloads.
func sortYaku(yaku []YakuValue) {
	sort.SliceStable(yaku, func(i, j int) bool {
		if yaku[i].Yakuman != yaku[j].Yakuman {
			return yaku[i].Yakuman > yaku[j].Yakuman
		}
		if yaku[i].Han != yaku[j].Han {
			return yaku[i].Han > yaku[j].Han
		}
		return yaku[i].Name < yaku[j].Name
	})
}
