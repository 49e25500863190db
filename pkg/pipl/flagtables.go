package pipl

// FlagBit is one (mask, symbolic name) pair of a flag table.
type FlagBit struct {
	Mask uint32
	Name string
}

// FlagTable is the ordered list of flag bits a single property tag can carry.
// Masks do not overlap in practice; table order is the tie-break rule for
// decomposition and the emission order of the generator.
type FlagTable struct {
	Field string // owning script field name, used in error messages
	Bits  []FlagBit
}

// OutFlags covers AE_Effect_Global_OutFlags ('eGLO'), matching the
// PF_OutFlag constants of the After Effects SDK.
var OutFlags = FlagTable{
	Field: "AE_Effect_Global_OutFlags",
	Bits: []FlagBit{
		{0x00000001, "PF_OutFlag_KEEP_RESOURCE_OPEN"},
		{0x00000002, "PF_OutFlag_WIDE_TIME_INPUT"},
		{0x00000004, "PF_OutFlag_NON_PARAM_VARY"},
		{0x00000010, "PF_OutFlag_SEQUENCE_DATA_NEEDS_FLATTENING"},
		{0x00000020, "PF_OutFlag_I_DO_DIALOG"},
		{0x00000040, "PF_OutFlag_USE_OUTPUT_EXTENT"},
		{0x00000080, "PF_OutFlag_SEND_DO_DIALOG"},
		{0x00000100, "PF_OutFlag_DISPLAY_ERROR_MESSAGE"},
		{0x00000200, "PF_OutFlag_I_EXPAND_BUFFER"},
		{0x00000400, "PF_OutFlag_PIX_INDEPENDENT"},
		{0x00000800, "PF_OutFlag_I_WRITE_INPUT_BUFFER"},
		{0x00001000, "PF_OutFlag_I_SHRINK_BUFFER"},
		{0x00002000, "PF_OutFlag_WORKS_IN_PLACE"},
		{0x00008000, "PF_OutFlag_CUSTOM_UI"},
		{0x00020000, "PF_OutFlag_REFRESH_UI"},
		{0x00040000, "PF_OutFlag_NOP_RENDER"},
		{0x00080000, "PF_OutFlag_I_USE_SHUTTER_ANGLE"},
		{0x00100000, "PF_OutFlag_I_USE_AUDIO"},
		{0x00200000, "PF_OutFlag_I_AM_OBSOLETE"},
		{0x00400000, "PF_OutFlag_FORCE_RERENDER"},
		{0x00800000, "PF_OutFlag_PiPL_OVERRIDES_OUTDATA_OUTFLAGS"},
		{0x01000000, "PF_OutFlag_I_HAVE_EXTERNAL_DEPENDENCIES"},
		{0x02000000, "PF_OutFlag_DEEP_COLOR_AWARE"},
		{0x04000000, "PF_OutFlag_SEND_UPDATE_PARAMS_UI"},
		{0x08000000, "PF_OutFlag_AUDIO_FLOAT_ONLY"},
		{0x10000000, "PF_OutFlag_AUDIO_IIR"},
		{0x20000000, "PF_OutFlag_I_SYNTHESIZE_AUDIO"},
		{0x40000000, "PF_OutFlag_AUDIO_EFFECT_TOO"},
		{0x80000000, "PF_OutFlag_AUDIO_EFFECT_ONLY"},
	},
}

// OutFlags2 covers AE_Effect_Global_OutFlags_2 ('eGL2').
var OutFlags2 = FlagTable{
	Field: "AE_Effect_Global_OutFlags_2",
	Bits: []FlagBit{
		{0x00000001, "PF_OutFlag2_SUPPORTS_QUERY_DYNAMIC_FLAGS"},
		{0x00000002, "PF_OutFlag2_I_USE_3D_CAMERA"},
		{0x00000004, "PF_OutFlag2_I_USE_3D_LIGHTS"},
		{0x00000008, "PF_OutFlag2_PARAM_GROUP_START_COLLAPSED_FLAG"},
		{0x00000010, "PF_OutFlag2_I_AM_THREADSAFE"},
		{0x00000020, "PF_OutFlag2_CAN_COMBINE_WITH_DESTINATION"},
		{0x00000040, "PF_OutFlag2_DOESNT_NEED_EMPTY_PIXELS"},
		{0x00000080, "PF_OutFlag2_REVEALS_ZERO_ALPHA"},
		{0x00000100, "PF_OutFlag2_PRESERVES_FULLY_OPAQUE_PIXELS"},
		{0x00000400, "PF_OutFlag2_SUPPORTS_SMART_RENDER"},
		{0x00001000, "PF_OutFlag2_FLOAT_COLOR_AWARE"},
		{0x00002000, "PF_OutFlag2_I_USE_COLORSPACE_ENUMERATION"},
		{0x00004000, "PF_OutFlag2_I_AM_DEPRECATED"},
		{0x00008000, "PF_OutFlag2_PPRO_DO_NOT_CLONE_SEQUENCE_DATA_FOR_RENDER"},
		{0x00020000, "PF_OutFlag2_AUTOMATIC_WIDE_TIME_INPUT"},
		{0x00040000, "PF_OutFlag2_I_USE_TIMECODE"},
		{0x00080000, "PF_OutFlag2_DEPENDS_ON_UNREFERENCED_MASKS"},
		{0x00100000, "PF_OutFlag2_OUTPUT_IS_WATERMARKED"},
		{0x00200000, "PF_OutFlag2_I_MIX_GUID_DEPENDENCIES"},
		{0x00400000, "PF_OutFlag2_AE13_5_THREADSAFE"},
		{0x00800000, "PF_OutFlag2_SUPPORTS_GET_FLATTENED_SEQUENCE_DATA"},
		{0x01000000, "PF_OutFlag2_CUSTOM_UI_ASYNC_MANAGER"},
		{0x02000000, "PF_OutFlag2_SUPPORTS_GPU_RENDER_F32"},
		{0x08000000, "PF_OutFlag2_SUPPORTS_THREADED_RENDERING"},
		{0x10000000, "PF_OutFlag2_MUTABLE_RENDER_SEQUENCE_DATA_SLOWER"},
	},
}
